package models

// User is the record returned by sign-in and cached on the device.
type User struct {
	ID         ID     `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PictureURL string `json:"pictureUrl,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// InsurancePlan is the device-local plan preference. It is never sent to
// the backend as a field of its own.
type InsurancePlan struct {
	Carrier  string `json:"carrier"`
	PlanName string `json:"planName,omitempty"`
}

// Label renders the plan as the one-line hint used in chat context.
// An empty label means there is nothing worth sending.
func (p InsurancePlan) Label() string {
	switch {
	case p.Carrier != "" && p.PlanName != "":
		return p.Carrier + " — " + p.PlanName
	case p.Carrier != "":
		return p.Carrier
	}
	return ""
}
