package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known job board.
type Platform string

const (
	PlatformGreenhouse      Platform = "greenhouse"
	PlatformLever           Platform = "lever"
	PlatformWorkday         Platform = "workday"
	PlatformAshby           Platform = "ashby"
	PlatformSmartRecruiters Platform = "smartrecruiters"
	PlatformLinkedIn        Platform = "linkedin"
	PlatformUnknown         Platform = "unknown"
)

var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"myworkdayjobs.com", PlatformWorkday},
	{"workday.com", PlatformWorkday},
	{"ashbyhq.com", PlatformAshby},
	{"smartrecruiters.com", PlatformSmartRecruiters},
	{"linkedin.com", PlatformLinkedIn},
}

// DetectPlatform identifies the job board hosting rawURL.
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// genericContent is tried on every page, after any board specific selectors.
var genericContent = []string{
	".job-description",
	"#job-description",
	".job-details",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
	"#content",
	".content",
}

var platformContent = map[Platform][]string{
	PlatformGreenhouse:      {".job__description.body", ".job__description", "#content .job-post"},
	PlatformLever:           {".posting-page", ".section-wrapper.page-full-width"},
	PlatformWorkday:         {"[data-automation-id='jobDescription']", ".gwt-HTML"},
	PlatformAshby:           {"._descriptionText_oj0x8_198", "[class*='descriptionText']"},
	PlatformSmartRecruiters: {".job-sections", "[itemprop='description']"},
	PlatformLinkedIn:        {".description__text", ".show-more-less-html__markup"},
}

// ContentSelectors returns the selectors that locate the posting body.
func ContentSelectors(p Platform) []string {
	return append(append([]string{}, platformContent[p]...), genericContent...)
}

var commonNoise = []string{
	"form",
	".application-form",
	"#application-form",
	".apply-button-container",
	".eeo-statement",
	".voluntary-disclosure",
	".self-identification",
	".social-share",
	".cookie-consent",
	".gdpr-notice",
}

var platformNoise = map[Platform][]string{
	PlatformGreenhouse: {".application--wrapper", ".voluntary-self-id", "#usa_self_id_section"},
	PlatformLever:      {".posting-apply", ".lever-application-form"},
	PlatformWorkday:    {"[data-automation-id='applyButton']", ".WDAF"},
	PlatformLinkedIn:   {".top-card-layout__cta-container", ".similar-jobs"},
}

// NoiseSelectors returns the selectors removed before reading a posting.
func NoiseSelectors(p Platform) []string {
	return append(append([]string{}, commonNoise...), platformNoise[p]...)
}
