package protocol

import "strings"

// Access is the set of permissions requested for a generated key.
type Access uint8

// Access rights, rendered in this order by String.
const (
	AccessRead Access = 1 << iota
	AccessWrite
	AccessStore
	AccessLoad
	AccessPresence
	AccessExtend
	AccessExecute

	AccessReadWrite = AccessRead | AccessWrite
	AccessStoreLoad = AccessStore | AccessLoad
)

var accessLetters = []struct {
	flag   Access
	letter byte
}{
	{AccessRead, 'r'},
	{AccessWrite, 'w'},
	{AccessStore, 's'},
	{AccessLoad, 'l'},
	{AccessPresence, 'p'},
	{AccessExtend, 'e'},
	{AccessExecute, 'x'},
}

// String renders the access as the letters used in a keygen request, e.g. "rwsl".
func (a Access) String() string {
	var b strings.Builder
	for _, l := range accessLetters {
		if a&l.flag != 0 {
			b.WriteByte(l.letter)
		}
	}
	return b.String()
}

// ParseAccess parses letters such as "rwp". Unknown letters are ignored.
func ParseAccess(s string) Access {
	var a Access
	for i := 0; i < len(s); i++ {
		for _, l := range accessLetters {
			if s[i] == l.letter {
				a |= l.flag
			}
		}
	}
	return a
}
