package useragent

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device type categories.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// OS labels.
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSiOS     = "iOS"
	OSAndroid = "Android"
	OSChrome  = "ChromeOS"
	OSLinux   = "Linux"
	OSUnknown = ""
)

// Browser labels.
const (
	BrowserEdge    = "Edge"
	BrowserOpera   = "Opera"
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserUnknown = ""
)

// UserAgent is the parsed form of one User-Agent header.
type UserAgent struct {
	raw        string
	deviceType string
	os         string
	browser    string
	browserVer string
}

func (ua UserAgent) String() string     { return ua.raw }
func (ua UserAgent) DeviceType() string { return ua.deviceType }
func (ua UserAgent) OS() string         { return ua.os }
func (ua UserAgent) Browser() string    { return ua.browser }
func (ua UserAgent) BrowserVer() string { return ua.browserVer }

func (ua UserAgent) IsBot() bool     { return ua.deviceType == DeviceBot }
func (ua UserAgent) IsMobile() bool  { return ua.deviceType == DeviceMobile }
func (ua UserAgent) IsTablet() bool  { return ua.deviceType == DeviceTablet }
func (ua UserAgent) IsDesktop() bool { return ua.deviceType == DeviceDesktop }
func (ua UserAgent) IsUnknown() bool { return ua.deviceType == DeviceUnknown }

var (
	botPattern     = regexp.MustCompile(`(?i)([a-z0-9\-_]+(?:bot|spider|crawler))`)
	versionPattern = map[string]*regexp.Regexp{
		BrowserEdge:    regexp.MustCompile(`edga?(?:ios)?/([0-9.]+)`),
		BrowserOpera:   regexp.MustCompile(`(?:opr|opios)/([0-9.]+)`),
		BrowserChrome:  regexp.MustCompile(`(?:chrome|crios)/([0-9.]+)`),
		BrowserFirefox: regexp.MustCompile(`(?:firefox|fxios)/([0-9.]+)`),
		BrowserSafari:  regexp.MustCompile(`version/([0-9.]+)`),
	}
	botTitle = cases.Title(language.English)
)

// Parse never fails; unparseable strings come back with every field
// unknown so callers can still render a generic label.
func Parse(raw string) UserAgent {
	ua := UserAgent{raw: raw, deviceType: DeviceUnknown}
	if raw == "" {
		return ua
	}

	lower := strings.ToLower(raw)

	if isBot(lower) {
		ua.deviceType = DeviceBot
		return ua
	}

	ua.os = parseOS(lower)
	ua.browser, ua.browserVer = parseBrowser(lower)
	ua.deviceType = parseDeviceType(lower, ua.os)
	return ua
}

// Label renders the short human-readable form shown next to each active
// session, such as "Chrome 120 on macOS" or "Bot: Googlebot".
func (ua UserAgent) Label() string {
	if ua.IsBot() {
		return "Bot: " + botName(ua.raw)
	}

	browser := ua.browser
	if browser != BrowserUnknown && ua.browserVer != "" {
		browser += " " + majorVersion(ua.browserVer)
	}

	switch {
	case browser != "" && ua.os != OSUnknown:
		return fmt.Sprintf("%s on %s", browser, ua.os)
	case browser != "":
		return browser
	case ua.os != OSUnknown:
		return ua.os
	default:
		return "Unknown device"
	}
}

func isBot(lower string) bool {
	for _, kw := range []string{"bot", "spider", "crawler", "slurp", "facebookexternalhit", "curl/", "wget/", "python-requests"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func botName(raw string) string {
	if m := botPattern.FindStringSubmatch(raw); len(m) > 1 {
		return botTitle.String(strings.ToLower(m[1]))
	}
	return "Unknown Bot"
}

func parseOS(lower string) string {
	switch {
	case strings.Contains(lower, "windows"):
		return OSWindows
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"), strings.Contains(lower, "ipod"):
		return OSiOS
	case strings.Contains(lower, "mac os x"), strings.Contains(lower, "macintosh"):
		return OSMacOS
	case strings.Contains(lower, "android"):
		return OSAndroid
	case strings.Contains(lower, "cros"):
		return OSChrome
	case strings.Contains(lower, "linux"), strings.Contains(lower, "x11"):
		return OSLinux
	default:
		return OSUnknown
	}
}

// parseBrowser checks the most specific token first: Chrome-derived
// browsers all carry a chrome/ token, and everything WebKit carries
// safari/.
func parseBrowser(lower string) (string, string) {
	order := []string{BrowserEdge, BrowserOpera, BrowserChrome, BrowserFirefox, BrowserSafari}
	markers := map[string][]string{
		BrowserEdge:    {"edg/", "edga/", "edgios/"},
		BrowserOpera:   {"opr/", "opios/", "opera"},
		BrowserChrome:  {"chrome/", "crios/"},
		BrowserFirefox: {"firefox/", "fxios/"},
		BrowserSafari:  {"safari/"},
	}

	for _, name := range order {
		for _, marker := range markers[name] {
			if strings.Contains(lower, marker) {
				version := ""
				if m := versionPattern[name].FindStringSubmatch(lower); len(m) > 1 {
					version = m[1]
				}
				return name, version
			}
		}
	}
	return BrowserUnknown, ""
}

func parseDeviceType(lower, os string) string {
	switch {
	case strings.Contains(lower, "ipad"),
		strings.Contains(lower, "tablet"),
		os == OSAndroid && !strings.Contains(lower, "mobile"):
		return DeviceTablet
	case strings.Contains(lower, "mobile"),
		strings.Contains(lower, "iphone"),
		strings.Contains(lower, "ipod"):
		return DeviceMobile
	case os == OSWindows, os == OSMacOS, os == OSLinux, os == OSChrome:
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

func majorVersion(version string) string {
	if i := strings.IndexByte(version, '.'); i > 0 {
		return version[:i]
	}
	return version
}
