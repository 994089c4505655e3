// Package deploy defines how applications are redeployed and provides a
// deployer that works from the applications stored locally.
package deploy

import (
	"context"
	"time"

	"github.com/rzbill/provision/pkg/types"
)

// Deployer creates deployments of applications.
type Deployer interface {
	// DeployFromLocalActive returns a deployment that redeploys app from the
	// state active on this config server. It returns a nil Deployment and
	// no error when another config server should deploy app. The deployment
	// must complete within timeout.
	DeployFromLocalActive(ctx context.Context, app types.ApplicationID, timeout time.Duration) (Deployment, error)
}

// Deployment is a single redeployment of an application.
type Deployment interface {
	Prepare(ctx context.Context) error
	Activate(ctx context.Context) error
}
