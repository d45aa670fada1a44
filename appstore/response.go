package appstore

import (
	"encoding/json"
	"strings"
	"time"
)

// Time is a timestamp in the verification service's GMT format, e.g.
// "2013-08-01 07:00:00 Etc/GMT". A value that fails to parse is left as the
// zero time rather than failing the decode of the whole response.
type Time struct {
	time.Time
}

// PacificTime is a timestamp in the service's Pacific format, which carries
// either a zone abbreviation ("2013-08-01 00:00:00 PST") or a full zone name
// ("2013-08-01 00:00:00 America/Los_Angeles"). Unparseable values are left as
// the zero time.
type PacificTime struct {
	time.Time
}

const dateTimeLayout = "2006-01-02 15:04:05 MST"

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}

	// The zone is written as "Etc/GMT", "Etc/GMT+8", etc.
	s = strings.Replace(s, "Etc/", "", 1)

	if parsed, err := time.Parse(dateTimeLayout, s); err == nil {
		t.Time = parsed
	}
	return nil
}

func (t *PacificTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}

	if parsed, err := time.Parse(dateTimeLayout, s); err == nil {
		t.Time = parsed
		return nil
	}

	// Full zone names ("America/Los_Angeles") don't fit a layout, so split
	// the zone off and resolve it separately.
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		loc, err := time.LoadLocation(s[i+1:])
		if err != nil {
			return nil
		}
		if parsed, err := time.ParseInLocation("2006-01-02 15:04:05", s[:i], loc); err == nil {
			t.Time = parsed
		}
	}
	return nil
}

// ReceiptResponse is the decoded reply from the verification service. The
// same shape describes both the top-level receipt and each entry of InApp;
// fields absent from the wire payload are simply left unset.
type ReceiptResponse struct {
	Status int `json:"status"`

	AdamID                    string `json:"adam_id"`
	AppItemID                 string `json:"app_item_id"`
	BundleID                  string `json:"bid"`
	ApplicationVersion        string `json:"bvrs"`
	DownloadID                string `json:"download_id"`
	ItemID                    string `json:"item_id"`
	ProductID                 string `json:"product_id"`
	Quantity                  string `json:"quantity"`
	TransactionID             string `json:"transaction_id"`
	OriginalTransactionID     string `json:"original_transaction_id"`
	UniqueIdentifier          string `json:"unique_identifier"`
	UniqueVendorIdentifier    string `json:"unique_vendor_identifier"`
	VersionExternalIdentifier string `json:"version_external_identifier"`
	WebOrderLineItemID        string `json:"web_order_line_item_id"`

	ExpiresDate             Time        `json:"expires_date"`
	ExpiresDateMS           string      `json:"expires_date_ms"`
	ExpiresDatePST          PacificTime `json:"expires_date_pst"`
	OriginalPurchaseDate    Time        `json:"original_purchase_date"`
	OriginalPurchaseDateMS  string      `json:"original_purchase_date_ms"`
	OriginalPurchaseDatePST PacificTime `json:"original_purchase_date_pst"`
	PurchaseDate            Time        `json:"purchase_date"`
	PurchaseDateMS          string      `json:"purchase_date_ms"`
	PurchaseDatePST         PacificTime `json:"purchase_date_pst"`

	TrialPeriod string `json:"is_trial_period"`

	InApp []*ReceiptResponse `json:"in_app"`
}

// IsTrialPeriod reports whether the service marked this transaction as a
// trial. The wire value is the string literal "true" or "false"; anything
// else, including an absent field, counts as false.
func (r *ReceiptResponse) IsTrialPeriod() bool {
	return r.TrialPeriod == "true"
}

// HasActiveSubscription reports whether the receipt's expiry, as decoded
// from expires_date, is at or after the current time. Receipts without an
// expiry are never considered active.
func (r *ReceiptResponse) HasActiveSubscription() bool {
	if r.ExpiresDate.IsZero() {
		return false
	}
	return !r.ExpiresDate.Before(time.Now())
}
