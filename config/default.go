package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/opentube/opentube/color"
	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/key"
	"github.com/opentube/opentube/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is a registered setting and its factory default. The type of Value
// decides how `config set` parses input.
type Field struct {
	Key         string
	Value       any
	Description string
}

var fields = []Field{
	{key.PlayerDefaultQuality, "720p", "Preferred video quality, e.g. 480p, 1080p.\nUnparseable values fall back to 720p"},
	{key.PlayerSettleDelayMs, 300, "Pause between a prepared merged source and the play request, in milliseconds"},
	{key.PlayerAdvanceDelayMs, 1500, "Delay before skipping to the next item after an error, in milliseconds"},
	{key.PlayerMaxConsecutiveFailures, 5, "Stop auto-advancing after this many items fail in a row"},
	{key.PlayerMpvPath, "mpv", "Path or name of the mpv executable"},
	{key.PlayerLoop, false, "Wrap around when navigating past either end of the queue"},

	{key.ResolverMaxRetries, 3, "How many times a failed extraction is retried"},
	{key.ResolverRetryDelayMs, 2000, "Fixed delay between extraction retries, in milliseconds"},
	{key.ResolverWorkers, 2, "Size of the background worker pool used for extraction"},

	{key.CacheCapacity, 50, "Number of resolved stream sets kept in memory"},

	{key.ExtractorTimeoutSeconds, 30, "HTTP timeout for extraction requests, in seconds"},
	{key.ExtractorTLSFingerprint, false, "Use a browser TLS fingerprint for extraction requests"},

	{key.HistorySaveOnPlay, true, "Record watch positions to the local history"},

	{key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)"},

	{key.LogsWrite, false, "Write logs"},
	{key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace"},
	{key.LogsJson, false, "Use json format for logs"},

	{key.CliColored, true, "Enable colored CLI output"},
	{key.CliVersionCheck, true, "Enable automatic version check"},
}

// Default holds every registered field keyed by its dotted name.
var Default = lo.KeyBy(fields, func(f Field) string { return f.Key })

// EnvExposed lists keys bound to environment variables.
var EnvExposed = lo.Map(fields, func(f Field, _ int) string { return f.Key })

// Section is the group of the field, the part of the key before the first dot.
func (f *Field) Section() string {
	section, _, _ := strings.Cut(f.Key, ".")
	return section
}

// Env returns the environment variable bound to this field.
func (f *Field) Env() string {
	return strings.ToUpper(constant.OpenTube + "_" + EnvKeyReplacer.Replace(f.Key))
}

// Type names the Go type of the default value.
func (f *Field) Type() string {
	return fmt.Sprintf("%T", f.Value)
}

// MarshalJSON includes both the live value and the default.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"key":         f.Key,
		"value":       viper.Get(f.Key),
		"default":     f.Value,
		"description": f.Description,
		"type":        f.Type(),
		"env":         f.Env(),
	})
}

// Pretty renders the field for `config info`.
func (f *Field) Pretty() string {
	rows := []lo.Tuple2[string, string]{
		{A: "Key", B: style.Key(f.Key)},
		{A: "Env", B: f.Env()},
		{A: "Value", B: highlight(viper.Get(f.Key))},
		{A: "Default", B: highlight(f.Value)},
		{A: "Type", B: f.Type()},
	}

	label := style.New().Width(9).Foreground(color.Blue)
	lines := append(
		[]string{style.Faint(f.Description)},
		lo.Map(rows, func(row lo.Tuple2[string, string], _ int) string {
			return label.Render(row.A+":") + row.B
		})...,
	)
	return strings.Join(lines, "\n")
}

func highlight(v any) string {
	switch value := v.(type) {
	case bool:
		if value {
			return style.Success(strconv.FormatBool(value))
		}
		return style.Failure(strconv.FormatBool(value))
	case string:
		return style.Value(strconv.Quote(value))
	default:
		return fmt.Sprint(value)
	}
}
