// Copyright 2025 The Fleetdfu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package buildapi

import (
	"fmt"
	"os"

	tektonv1 "github.com/tektoncd/pipeline/pkg/apis/pipeline/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	controllerruntime "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/cloupeer-io/fleetdfu/internal/coordinator/health"
	"github.com/cloupeer-io/fleetdfu/internal/coordinator/server"
	"github.com/cloupeer-io/fleetdfu/pkg/options"
)

// Config bundles the options the build-trigger API binary needs to wire
// its Kubernetes client, registry client and orchestrator.
type Config struct {
	HttpOptions         *options.HttpOptions
	KubeOptions         *options.KubeOptions
	RegistryOptions     *options.RegistryOptions
	OrchestratorOptions *options.OrchestratorOptions
	TriggerOptions      *options.BuildAPIOptions
	HealthOptions       *options.HealthOptions
}

// NewServerManager builds a Kubernetes client scoped to the PipelineRun
// types this package creates, then wraps the build-trigger HTTP server and
// the liveness surface in one Manager.
func (c *Config) NewServerManager() (*server.Manager, error) {
	if c.KubeOptions.KubeConfig != "" {
		if err := os.Setenv("KUBECONFIG", c.KubeOptions.KubeConfig); err != nil {
			return nil, fmt.Errorf("buildapi: set KUBECONFIG: %w", err)
		}
	}

	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("buildapi: register core/v1 scheme: %w", err)
	}
	if err := tektonv1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("buildapi: register tekton pipeline/v1 scheme: %w", err)
	}

	restConfig := controllerruntime.GetConfigOrDie()
	kubeClient, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("buildapi: create kubernetes client: %w", err)
	}

	httpServer := NewServer(c.HttpOptions.Addr, c.KubeOptions.Namespace, kubeClient, c.RegistryOptions, c.OrchestratorOptions, c.TriggerOptions)

	servers := []server.Server{httpServer}
	if h := health.NewServer(c.HealthOptions); h != nil {
		servers = append(servers, h)
	}

	return server.NewManager(servers...), nil
}
