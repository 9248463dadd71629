package model

type CreateLicenseInput struct {
	Username string `json:"username"`
	Plan     string `json:"plan"`
	Days     int    `json:"days"`
}

// UpdateLicenseInput carries optional fields; nil means "leave unchanged".
type UpdateLicenseInput struct {
	Key    string `json:"key"`
	Days   *int   `json:"days"`
	Active *bool  `json:"active"`
}

type ValidateInput struct {
	Key string `json:"key"`
}
