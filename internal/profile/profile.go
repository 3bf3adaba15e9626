package profile

import "strings"

// Profile holds the fields gathered during the profiling conversation.
// Fields are populated incrementally and only cleared on an explicit reset.
type Profile struct {
	Role             string `json:"role,omitempty"`
	ExperienceLevel  string `json:"experience_level,omitempty"`
	TargetRole       string `json:"target_role,omitempty"`
	TargetCompany    string `json:"target_company,omitempty"`
	EducationDetails string `json:"education_details,omitempty"`
}

// IsStudent reports whether the extracted role indicates a student.
func (p Profile) IsStudent() bool {
	return strings.Contains(strings.ToLower(p.Role), "student")
}

// Filled reports whether the four core fields have been collected.
// EducationDetails is supplemental and only set for students.
func (p Profile) Filled() bool {
	return p.Role != "" && p.ExperienceLevel != "" && p.TargetRole != "" && p.TargetCompany != ""
}

// Background returns the education-or-experience line used when summarizing
// the profile back to the user. Students hear their education details,
// everyone else hears their experience level.
func (p Profile) Background() string {
	if p.IsStudent() && p.EducationDetails != "" {
		return p.EducationDetails
	}
	return p.ExperienceLevel
}
