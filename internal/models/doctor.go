package models

// Doctor is one entry of a directory search.
type Doctor struct {
	ID                   string   `json:"id"`
	FirstName            string   `json:"firstName"`
	LastName             string   `json:"lastName"`
	Specialty            string   `json:"specialty"`
	ProfileImageURL      string   `json:"profileImageUrl,omitempty"`
	PracticeName         string   `json:"practiceName,omitempty"`
	Address              *Address `json:"address,omitempty"`
	Rating               float64  `json:"rating"`
	ReviewCount          int      `json:"reviewCount"`
	InsurancesAccepted   []string `json:"insurancesAccepted,omitempty"`
	AvailableSlots       []string `json:"availableSlots,omitempty"`
	ZocdocProfileURL     string   `json:"zocdocProfileUrl,omitempty"`
	AcceptingNewPatients bool     `json:"acceptingNewPatients"`
}

// FullName joins first and last name.
func (d Doctor) FullName() string {
	switch {
	case d.FirstName == "":
		return d.LastName
	case d.LastName == "":
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

// Address is a practice location.
type Address struct {
	Street    string  `json:"street"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	ZipCode   string  `json:"zipCode"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// DoctorSearchResult is the payload attached to DOCTOR_RESULTS messages.
type DoctorSearchResult struct {
	TotalResults int      `json:"totalResults"`
	Specialty    string   `json:"specialty,omitempty"`
	Location     string   `json:"location,omitempty"`
	SearchQuery  string   `json:"searchQuery,omitempty"`
	Doctors      []Doctor `json:"doctors"`
}
