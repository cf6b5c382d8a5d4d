// Package regions is the fixed reference set of Mongolian aimags that a post
// location must match, exactly, to count toward a user's countriesVisited.
package regions

import "strings"

var names = [...]string{
	"Архангай",
	"Баян-Өлгий",
	"Баянхонгор",
	"Булган",
	"Говь-Алтай",
	"Говьсүмбэр",
	"Дархан-Уул",
	"Дорноговь",
	"Дорнод",
	"Дундговь",
	"Завхан",
	"Орхон",
	"Өвөрхангай",
	"Өмнөговь",
	"Сүхбаатар",
	"Сэлэнгэ",
	"Төв",
	"Увс",
	"Ховд",
	"Хөвсгөл",
	"Хэнтий",
}

var set = func() map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()

// Names returns the reference names in display order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}

// Contains reports whether name is a reference region. Surrounding spaces
// are ignored; case and spelling are not.
func Contains(name string) bool {
	_, ok := set[strings.TrimSpace(name)]
	return ok
}

// CountVisited returns how many distinct reference regions appear in
// locations. Unknown names and duplicates are ignored.
func CountVisited(locations []string) int {
	seen := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if _, ok := set[loc]; ok {
			seen[loc] = struct{}{}
		}
	}
	return len(seen)
}
