package core

import (
	"path"
	"strings"
)

// DefaultOutputSuffix is inserted before the extension of exported files.
const DefaultOutputSuffix = "_cleaned"

// OutputFilename derives the download name for a cleaned file by inserting
// suffix before the last extension of original:
//
//	contacts.csv -> contacts_cleaned.csv
//	export.v2.txt -> export.v2_cleaned.txt
//	contacts -> contacts_cleaned.csv
//
// Directory components (either slash style) are dropped. An empty suffix
// means DefaultOutputSuffix.
func OutputFilename(original, suffix string) string {
	if suffix == "" {
		suffix = DefaultOutputSuffix
	}

	name := path.Base(strings.ReplaceAll(original, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}

	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return name + suffix + ".csv"
	}
	return name[:dot] + suffix + name[dot:]
}
