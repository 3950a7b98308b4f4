package library

import (
	"sync"

	"github.com/killallgit/llt/pkg/template"
)

var (
	sharedOnce sync.Once
	shared     *Library
)

// Shared returns the process-wide library. It is created lazily on first
// access, lives for the whole process, and serves exactly one purpose
// beyond a normal library: it is the fallback lookup target when @render
// misses in a template's own library.
func Shared() *Library {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

type sharedHook struct{}

func (sharedHook) ResolveTemplate(name string) (template.Template, bool) {
	return Shared().ResolveTemplate(name)
}

func init() {
	template.SetSharedResolver(sharedHook{})
}
