package identity

import (
	"context"
	"net/http"
	"strings"
)

// nextActionDevicePrint is the action the provider announces before it will
// accept a device fingerprint.
const nextActionDevicePrint = "SEND_DEVICE_PRINT"

// devicePrint is the synthetic browser fingerprint submitted to the
// anomaly-detection endpoint. The values describe an x86 Android 12
// emulator; any internally consistent profile is currently accepted.
type devicePrint struct {
	AppCodeName string           `json:"appCodeName"`
	AppName     string           `json:"appName"`
	AppVersion  string           `json:"appVersion"`
	Fonts       installedFonts   `json:"fonts"`
	Language    string           `json:"language"`
	Platform    string           `json:"platform"`
	Plugins     installedPlugins `json:"plugins"`
	Product     string           `json:"product"`
	ProductSub  string           `json:"productSub"`
	Screen      screenMetrics    `json:"screen"`
	Timezone    timezoneOffset   `json:"timezone"`
	UserAgent   string           `json:"userAgent"`
	Vendor      string           `json:"vendor"`
}

type installedFonts struct {
	InstalledFonts string `json:"installedFonts"`
}

type installedPlugins struct {
	InstalledPlugins string `json:"installedPlugins"`
}

type screenMetrics struct {
	ColourDepth int `json:"screenColourDepth"`
	Height      int `json:"screenHeight"`
	Width       int `json:"screenWidth"`
}

type timezoneOffset struct {
	Timezone int `json:"timezone"`
}

func newDevicePrint() devicePrint {
	return devicePrint{
		AppCodeName: "Mozilla",
		AppName:     "Netscape",
		AppVersion:  strings.TrimPrefix(userAgent, "Mozilla/"),
		Fonts: installedFonts{
			InstalledFonts: "cursive;monospace;serif;sans-serif;fantasy;default;Arial;Courier;" +
				"Courier New;Georgia;Tahoma;Times;Times New Roman;Verdana",
		},
		Language:   "de",
		Platform:   "Linux x86_64",
		Plugins:    installedPlugins{InstalledPlugins: ""},
		Product:    "Gecko",
		ProductSub: "20030107",
		Screen:     screenMetrics{ColourDepth: 24, Height: 732, Width: 412},
		Timezone:   timezoneOffset{Timezone: -120},
		UserAgent:  userAgent,
		Vendor:     "Google Inc.",
	}
}

// anomalyDetection answers the provider's bot-mitigation challenge: it reads
// the pending authId from the credentials-submission response and posts the
// synthetic device fingerprint. An unexpected nextAction type is only worth
// a warning, the flow proceeds regardless; a missing authId means the
// provider changed shape, surfaced with the offending context attached and
// never retried.
func (f *Fetcher) anomalyDetection(ctx context.Context, session *http.Client, prev authState, query string) (authState, error) {
	printURL := f.endpoints.SwissIDBaseURL + "/api-login/anomaly-detection/device-print?" + query

	if prev.NextAction.Type != nextActionDevicePrint {
		f.logger.Warn("unexpected next action before device print",
			"want", nextActionDevicePrint,
			"got", prev.NextAction.Type,
		)
	}

	if prev.Tokens.AuthID == "" {
		return authState{}, &FlowError{
			Kind: KindProtocol,
			Op:   "swissid: anomaly detection",
			URL:  printURL,
			Message: "previous response carries no authId for the device print step " +
				"(nextAction type: " + prev.NextAction.Type + ")",
		}
	}

	state, err := f.postAuthStep(ctx, session, printURL, newDevicePrint(), prev.Tokens.AuthID)
	if err != nil {
		return authState{}, flowErr(KindProtocol, "swissid: anomaly detection", printURL, "device print submission failed", err)
	}
	return state, nil
}
