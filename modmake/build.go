package main

import (
	. "github.com/saylorsolutions/modmake"
)

const (
	cryptblockVersion = "1.0.0"
)

func main() {
	b := NewBuild()
	b.Generate().DependsOnRunner("tidy", "", Go().ModTidy())

	cryptblock := NewAppBuild("cryptblock", "cmd/cryptblock", cryptblockVersion)
	cryptblock.Build(func(gb *GoBuild) {
		gb.
			StripDebugSymbols().
			SetVariable("main", "version", cryptblockVersion).
			CgoEnabled(false)
	})
	for _, platform := range [][2]string{
		{"windows", "amd64"},
		{"windows", "arm64"},
		{"linux", "amd64"},
		{"linux", "arm64"},
		{"darwin", "amd64"},
		{"darwin", "arm64"},
	} {
		cryptblock.Variant(platform[0], platform[1])
	}
	b.ImportApp(cryptblock)

	b.Execute()
}
