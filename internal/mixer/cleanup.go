package mixer

import (
	"os"

	"github.com/book-expert/logger"
)

// artifactSet tracks the temporary files allocated during one mix operation
// so that every exit path releases them. Removal failures are logged, never
// returned, so cleanup can never mask the pipeline's primary error.
type artifactSet struct {
	log   *logger.Logger
	paths []string
}

func newArtifactSet(log *logger.Logger) *artifactSet {
	return &artifactSet{
		log:   log,
		paths: nil,
	}
}

// track registers a path for unconditional removal when the operation ends.
func (s *artifactSet) track(path string) {
	s.paths = append(s.paths, path)
}

// removeAll deletes every tracked artifact. Paths that were allocated but
// never written (for example the engine output after a failed run) are
// skipped silently.
func (s *artifactSet) removeAll() {
	for _, path := range s.paths {
		removeErr := os.Remove(path)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			s.log.Warn("Failed to remove temp artifact '%s': %v", path, removeErr)
		}
	}

	s.paths = nil
}
