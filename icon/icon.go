// Package icon renders status symbols in the variant chosen by the user.
//
// Variants are emoji, nerd-font glyphs, plain ASCII, kaomoji and Unicode squares.
package icon

import (
	"github.com/opentube/opentube/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants lists the accepted values of icons.variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Icon identifies one symbol of the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Playing
	Paused
	Loading
	Queue
	Quality
	Mark
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "🎉", nerd: "\uf00c ", plain: "OK", kaomoji: "(ᵔ◡ᵔ)", squares: "🟩"},
	Fail:     {emoji: "💀", nerd: "\uf00d ", plain: "X", kaomoji: "(╯°□°)╯", squares: "🟥"},
	Progress: {emoji: "⏳", nerd: "\uf110 ", plain: "...", kaomoji: "(・_・ヾ", squares: "🟦"},
	Playing:  {emoji: "▶️", nerd: "\uf04b ", plain: ">", kaomoji: "(ﾉ◕ヮ◕)ﾉ", squares: "🟩"},
	Paused:   {emoji: "⏸️", nerd: "\uf04c ", plain: "||", kaomoji: "(－_－) zzZ", squares: "🟨"},
	Loading:  {emoji: "🔄", nerd: "\uf021 ", plain: "~", kaomoji: "(＠_＠;)", squares: "🟦"},
	Queue:    {emoji: "📜", nerd: "\uf03a ", plain: "#", kaomoji: "(・∀・)", squares: "⬜"},
	Quality:  {emoji: "📺", nerd: "\uf26c ", plain: "Q", kaomoji: "(⌐■_■)", squares: "🟪"},
	Mark:     {emoji: "📌", nerd: "\uf08d ", plain: "*", kaomoji: "(✿◠‿◠)", squares: "🟧"},
}

func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get renders i in the configured variant, or "" when the variant is unknown.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.Get()
}
