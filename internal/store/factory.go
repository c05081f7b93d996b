package store

import (
	"fmt"

	"github.com/slmtnm/s4browse/internal/config"
)

// Factory builds a Store for a configured remote.
type Factory func(remote config.Remote) (Store, error)

// New picks the backend named by remote.Backend.
func New(remote config.Remote) (Store, error) {
	switch remote.Backend {
	case "", config.BackendS3:
		c, err := NewS3Client(remote)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendMinio:
		c, err := NewMinioClient(remote)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", remote.Backend)
	}
}
