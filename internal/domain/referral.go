package domain

const (
	NoContact       = "No Contact Found"
	UnknownBusiness = "Unknown Business"
)

// Referral is one chat message that looks like a recommendation for a
// business or contact.
type Referral struct {
	Sender       string `json:"sender"`
	BusinessName string `json:"business_name"`
	Contact      string `json:"contact"`
	Message      string `json:"message"`
}

// CSVHeader is the column order used by every CSV output file.
var CSVHeader = []string{"sender", "business_name", "contact", "message"}

func (r Referral) CSVRow() []string {
	return []string{r.Sender, r.BusinessName, r.Contact, r.Message}
}
