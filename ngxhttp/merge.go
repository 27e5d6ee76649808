package ngxhttp

// Merger is the contract of a configuration record type T: its zero value is
// the default record and *T can merge itself with the enclosing scope's
// record.
//
// Merge must only fill fields the child left unset. A field set by a
// directive in the child scope keeps its value whatever the parent holds.
type Merger[T any] interface {
	*T
	Merge(prev *T) error
}

// NoConf is the record of a scope a module does not configure.
type NoConf struct{}

func (*NoConf) Merge(*NoConf) error {
	return nil
}
