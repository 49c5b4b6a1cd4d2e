package model

// Address identifies a postcard sender or recipient. Pure value type; the
// API adapter decides how fields map onto the wire payload (the recipient
// country is forced to SWITZERLAND there, whatever is set here).
type Address struct {
	Firstname       string
	Lastname        string
	Street          string
	Zip             string
	City            string
	Company         string
	CompanyAddition string
	Salutation      string
	Country         string
}

// Complete reports whether the mandatory address fields are present.
func (a Address) Complete() bool {
	return a.Firstname != "" && a.Lastname != "" && a.Street != "" && a.Zip != "" && a.City != ""
}

// Postcard bundles everything needed for one card submission. Picture holds
// the raw source photo bytes; Message is rendered into the text side, the
// wire-level "text" field stays empty.
type Postcard struct {
	Sender    Address
	Recipient Address
	Picture   []byte
	Message   string
}

// OrderConfirmation is the backend's acknowledgement of a submitted card.
type OrderConfirmation struct {
	OrderID int64
}
