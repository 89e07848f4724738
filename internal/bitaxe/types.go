package bitaxe

import (
	"strconv"
	"strings"
)

// SystemInfo is the payload of the /api/system/info endpoint. Only the
// fields the monitor consumes are mapped.
type SystemInfo struct {
	Hostname string `json:"hostname"`
	Model    string `json:"ASICModel"`

	HashRate float64 `json:"hashRate"` // GH/s
	Power    float64 `json:"power"`    // W
	Voltage  float64 `json:"voltage"`  // input mV on recent firmware
	Current  float64 `json:"current"`  // mA

	Frequency   int `json:"frequency"`   // MHz
	CoreVoltage int `json:"coreVoltage"` // mV

	Temp     float64 `json:"temp"`
	VRTemp   float64 `json:"vrTemp"`
	FanSpeed int     `json:"fanspeed"`
	FanRPM   int     `json:"fanrpm"`

	SharesAccepted int64 `json:"sharesAccepted"`
	SharesRejected int64 `json:"sharesRejected"`
	UptimeSeconds  int64 `json:"uptimeSeconds"`

	BestDiff        Difficulty `json:"bestDiff"`
	BestSessionDiff Difficulty `json:"bestSessionDiff"`

	StratumURL  string `json:"stratumURL"`
	StratumPort int    `json:"stratumPort"`
	StratumUser string `json:"stratumUser"`
}

// Difficulty is a share difficulty that the firmware reports either as
// a bare number or as a formatted string like "6.13 M" or "427K".
type Difficulty float64

func (d *Difficulty) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" || text == `""` {
		*d = 0
		return nil
	}

	if value, err := strconv.ParseFloat(text, 64); err == nil {
		*d = Difficulty(value)
		return nil
	}

	unquoted, err := strconv.Unquote(text)
	if err != nil {
		*d = 0
		return nil
	}

	*d = Difficulty(ParseDifficulty(unquoted))

	return nil
}

// ParseDifficulty converts a formatted difficulty string to its numeric
// value, honoring K/M/G/T/P suffixes. Unparseable input yields zero;
// a malformed best-diff string is never worth failing a whole sample.
func ParseDifficulty(value string) float64 {
	text := strings.ToUpper(strings.TrimSpace(value))
	if text == "" {
		return 0
	}

	multiplier := 1.0
	switch text[len(text)-1] {
	case 'K':
		multiplier = 1e3
	case 'M':
		multiplier = 1e6
	case 'G':
		multiplier = 1e9
	case 'T':
		multiplier = 1e12
	case 'P':
		multiplier = 1e15
	}
	if multiplier != 1.0 {
		text = strings.TrimSpace(text[:len(text)-1])
	}

	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}

	return number * multiplier
}
