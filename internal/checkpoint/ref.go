// Package checkpoint resolves which model checkpoint a run uses: a file
// already on disk or a file to be fetched from the hub.
package checkpoint

import "fmt"

// Ref is either Local or Remote. The choice is made once, before the model is
// built.
type Ref interface {
	checkpoint()
	String() string
}

// Local points at a checkpoint file on disk.
type Local struct {
	Path string
}

// Remote names a checkpoint file in a hub repository.
type Remote struct {
	Repo     string
	Filename string
	Revision string
}

func (Local) checkpoint()  {}
func (Remote) checkpoint() {}

// String implements fmt.Stringer.
func (l Local) String() string {
	return "local:" + l.Path
}

// String implements fmt.Stringer.
func (r Remote) String() string {
	if r.Revision == "" {
		return fmt.Sprintf("hub:%s/%s", r.Repo, r.Filename)
	}
	return fmt.Sprintf("hub:%s@%s/%s", r.Repo, r.Revision, r.Filename)
}
