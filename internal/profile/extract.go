package profile

import (
	"regexp"
	"strings"
)

// OpenToOpportunities is the sentinel returned when the user has no specific
// target company in mind.
const OpenToOpportunities = "Open to opportunities"

// The extractors below are heuristic, best-effort mappers from free speech to
// normalized profile values. They never fail: when nothing matches, the
// trimmed original utterance is returned unchanged and the conversation moves
// on. Table order is significant - the first matching entry wins - so entries
// are listed most-specific first.

type roleEntry struct {
	label    string
	keywords []string
}

// studentKeywords indicate the speaker is currently a student rather than
// employed. Checked before the role table.
var studentKeywords = []string{
	"student",
	"studying",
	"pursuing",
	"college",
	"university",
	"b.tech",
	"btech",
	"b.e.",
	"bachelor",
	"undergrad",
	"final year",
	"fresher",
}

// currentRoleTable maps spoken role descriptions to normalized titles.
var currentRoleTable = []roleEntry{
	{"Full Stack Developer", []string{"full stack", "fullstack"}},
	{"Frontend Developer", []string{"frontend", "front end", "front-end", "react developer", "web developer"}},
	{"Backend Developer", []string{"backend", "back end", "back-end"}},
	{"Machine Learning Engineer", []string{"machine learning", "ml engineer", "ai engineer", "deep learning"}},
	{"Data Scientist", []string{"data scientist", "data science"}},
	{"Data Analyst", []string{"data analyst", "business analyst", "analyst"}},
	{"Data Engineer", []string{"data engineer"}},
	{"DevOps Engineer", []string{"devops", "site reliability", "sre"}},
	{"QA Engineer", []string{"qa engineer", "test engineer", "quality assurance", "tester"}},
	{"Product Manager", []string{"product manager", "product management"}},
	{"Project Manager", []string{"project manager"}},
	{"UI/UX Designer", []string{"ux designer", "ui designer", "ux", "designer"}},
	{"Mobile Developer", []string{"android developer", "ios developer", "mobile developer", "flutter"}},
	{"Software Engineer", []string{"software engineer", "software developer", "sde", "programmer", "coder", "developer", "engineer"}},
	{"Consultant", []string{"consultant", "consulting"}},
	{"Intern", []string{"intern", "internship"}},
}

// targetRoleTable is broader than currentRoleTable: it keeps seniority and
// domain modifiers so "senior backend engineer" is not collapsed to a
// generic title.
var targetRoleTable = []roleEntry{
	{"Senior Software Engineer", []string{"senior software engineer", "senior developer", "senior engineer", "sde 2", "sde2", "sde ii"}},
	{"Staff Software Engineer", []string{"staff engineer", "staff software"}},
	{"Principal Engineer", []string{"principal engineer", "principal software"}},
	{"Engineering Manager", []string{"engineering manager", "em role"}},
	{"Tech Lead", []string{"tech lead", "technical lead", "team lead"}},
	{"Full Stack Developer", []string{"full stack", "fullstack"}},
	{"Frontend Developer", []string{"frontend", "front end", "front-end"}},
	{"Backend Developer", []string{"backend", "back end", "back-end"}},
	{"Machine Learning Engineer", []string{"machine learning", "ml engineer", "ai engineer", "deep learning"}},
	{"Data Scientist", []string{"data scientist", "data science"}},
	{"Data Engineer", []string{"data engineer"}},
	{"Data Analyst", []string{"data analyst", "business analyst", "analyst"}},
	{"DevOps Engineer", []string{"devops", "site reliability", "sre"}},
	{"QA Engineer", []string{"qa engineer", "test engineer", "quality assurance"}},
	{"Product Manager", []string{"product manager", "product management"}},
	{"Program Manager", []string{"program manager"}},
	{"UI/UX Designer", []string{"ux designer", "ui designer", "designer"}},
	{"Mobile Developer", []string{"android developer", "ios developer", "mobile developer"}},
	{"Software Engineering Intern", []string{"intern", "internship"}},
	{"Software Engineer", []string{"software engineer", "software developer", "sde", "developer", "engineer"}},
	{"Consultant", []string{"consultant", "consulting"}},
}

// companyTable maps spoken company names (and common aliases) to canonical
// names.
var companyTable = []roleEntry{
	{"Google", []string{"google", "alphabet"}},
	{"Microsoft", []string{"microsoft", "msft"}},
	{"Amazon", []string{"amazon", "aws"}},
	{"Apple", []string{"apple"}},
	{"Meta", []string{"meta", "facebook", "instagram"}},
	{"Netflix", []string{"netflix"}},
	{"NVIDIA", []string{"nvidia"}},
	{"Tesla", []string{"tesla"}},
	{"Uber", []string{"uber"}},
	{"Airbnb", []string{"airbnb"}},
	{"LinkedIn", []string{"linkedin"}},
	{"Adobe", []string{"adobe"}},
	{"Salesforce", []string{"salesforce"}},
	{"Oracle", []string{"oracle"}},
	{"IBM", []string{"ibm"}},
	{"Intel", []string{"intel"}},
	{"Atlassian", []string{"atlassian"}},
	{"Stripe", []string{"stripe"}},
	{"Goldman Sachs", []string{"goldman"}},
	{"JPMorgan", []string{"jpmorgan", "jp morgan"}},
	{"Morgan Stanley", []string{"morgan stanley"}},
	{"Deloitte", []string{"deloitte"}},
	{"Accenture", []string{"accenture"}},
	{"TCS", []string{"tcs", "tata consultancy"}},
	{"Infosys", []string{"infosys"}},
	{"Wipro", []string{"wipro"}},
	{"Zoho", []string{"zoho"}},
	{"Flipkart", []string{"flipkart"}},
	{"Paytm", []string{"paytm"}},
	{"Swiggy", []string{"swiggy"}},
	{"Zomato", []string{"zomato"}},
	{"Ola", []string{"ola cabs", "ola"}},
	{"BYJU'S", []string{"byju"}},
	{"PhonePe", []string{"phonepe"}},
	{"Razorpay", []string{"razorpay"}},
}

// noPreferencePhrases indicate the user has no specific company in mind.
var noPreferencePhrases = []string{
	"no specific",
	"no particular",
	"not sure",
	"any company",
	"anywhere",
	"open to",
	"don't have",
	"dont have",
	"no preference",
	"flexible",
	"doesn't matter",
	"doesnt matter",
}

// academicYearPhrases are explicit study-year descriptions. The utterance
// itself is the best experience description we can get, so it is kept intact.
var academicYearPhrases = []string{
	"first year", "1st year",
	"second year", "2nd year",
	"third year", "3rd year",
	"fourth year", "4th year",
	"final year",
	"freshman", "sophomore",
	"pre-final",
}

// institutionKeywords are substrings of well-known institution names.
// An utterance mentioning one is an education description, not a year count.
var institutionKeywords = []string{
	"iit", "nit", "bits", "iiit",
	"vit", "srm", "manipal", "amity",
	"university", "college", "institute",
}

// fresherPhrases map to zero professional experience.
var fresherPhrases = []string{
	"fresher",
	"no experience",
	"just graduated",
	"recently graduated",
	"recent graduate",
	"no work experience",
}

var (
	yearsPattern  = regexp.MustCompile(`(\d+)\s*\+?\s*(?:years?|yrs?)`)
	monthsPattern = regexp.MustCompile(`(\d+)\s*(?:months?)`)
)

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func scanTable(text string, table []roleEntry) (string, bool) {
	for _, entry := range table {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.label, true
			}
		}
	}
	return "", false
}

// ExtractCurrentRole maps a spoken description of the user's current position
// to a normalized title. Students are labeled "Student" regardless of wording.
func ExtractCurrentRole(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, studentKeywords) {
		return "Student"
	}
	if label, ok := scanTable(lower, currentRoleTable); ok {
		return label
	}
	return strings.TrimSpace(text)
}

// ExtractExperienceLevel normalizes a spoken experience description.
// Academic-year phrases and institution names are kept verbatim (they are the
// experience description for students), numeric durations are normalized to
// "N years"/"N months", and fresher phrases map to "0 years".
func ExtractExperienceLevel(text string) string {
	lower := strings.ToLower(text)

	if containsAny(lower, academicYearPhrases) {
		return strings.TrimSpace(text)
	}
	if containsAny(lower, institutionKeywords) {
		return strings.TrimSpace(text)
	}
	if m := yearsPattern.FindStringSubmatch(lower); m != nil {
		return m[1] + " years"
	}
	if m := monthsPattern.FindStringSubmatch(lower); m != nil {
		return m[1] + " months"
	}
	if containsAny(lower, fresherPhrases) {
		return "0 years"
	}
	return strings.TrimSpace(text)
}

// ExtractTargetRole maps a spoken target position to a normalized title,
// preserving seniority and domain modifiers where the table carries them.
func ExtractTargetRole(text string) string {
	lower := strings.ToLower(text)
	if label, ok := scanTable(lower, targetRoleTable); ok {
		return label
	}
	return strings.TrimSpace(text)
}

// ExtractTargetCompany maps a spoken company preference to a canonical
// company name, or OpenToOpportunities when the user expresses no preference.
func ExtractTargetCompany(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, noPreferencePhrases) {
		return OpenToOpportunities
	}
	if label, ok := scanTable(lower, companyTable); ok {
		return label
	}
	return strings.TrimSpace(text)
}
