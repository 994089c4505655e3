package deploy

import (
	"time"

	"github.com/rzbill/provision/pkg/types"
)

// ClusterSpec is the allowed size of one cluster of an application.
type ClusterSpec struct {
	ID  string                 `json:"id" yaml:"id"`
	Min types.ClusterResources `json:"min" yaml:"min"`
	Max types.ClusterResources `json:"max" yaml:"max"`
}

// Application is an application as deployed by this config server.
type Application struct {
	ID           types.ApplicationID `json:"id" yaml:"id"`
	ConfigServer string              `json:"configServer,omitempty" yaml:"configServer,omitempty"`
	Clusters     []ClusterSpec       `json:"clusters" yaml:"clusters"`
	Generation   int64               `json:"generation" yaml:"generation"`
	SessionID    string              `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	ActivatedAt  *time.Time          `json:"activatedAt,omitempty" yaml:"activatedAt,omitempty"`
}

// Validate checks that the application is well formed.
func (a Application) Validate() error {
	if err := a.ID.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(a.Clusters))
	for _, c := range a.Clusters {
		if c.ID == "" {
			return types.NewValidationErrorf("application %s has a cluster without id", a.ID)
		}
		if seen[c.ID] {
			return types.NewValidationErrorf("application %s has duplicate cluster '%s'", a.ID, c.ID)
		}
		seen[c.ID] = true
		if c.Max.SmallerThan(c.Min) {
			return types.NewValidationErrorf("cluster '%s' of %s: max %s is smaller than min %s", c.ID, a.ID, c.Max, c.Min)
		}
	}
	return nil
}

// Cluster returns the spec of the cluster with the given id.
func (a Application) Cluster(id string) (ClusterSpec, bool) {
	for _, c := range a.Clusters {
		if c.ID == id {
			return c, true
		}
	}
	return ClusterSpec{}, false
}

// storeKey returns the store namespace and name of the application.
func storeKey(id types.ApplicationID) (namespace, name string) {
	return id.Tenant, id.Application + "." + id.Instance
}
