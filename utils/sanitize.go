package utils

import "github.com/microcosm-cc/bluemonday"

// ugcPolicy allows basic formatting in user text while stripping scripts.
var ugcPolicy = bluemonday.UGCPolicy()

// Sanitize strips dangerous HTML from user-supplied text (bios, reviews,
// café names and descriptions) before it is stored or echoed back.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}
