package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/opsdeck/ecsup/internal/platform"
)

// Deployer performs one deploy: register a new task-definition revision and
// optionally roll the service to it. Strictly sequential, no retries; the
// first platform error halts the run. A revision registered before a failed
// service update stays registered.
type Deployer struct {
	cfg   Config
	api   platform.ECSAPI
	store *Store
}

// NewDeployer wires a deployer. store may be nil to skip history recording.
func NewDeployer(cfg Config, api platform.ECSAPI, store *Store) *Deployer {
	return &Deployer{cfg: cfg, api: api, store: store}
}

// DeployRequest is one deploy, fully resolved from config and flags.
type DeployRequest struct {
	Cluster            string
	Service            string
	DesiredCount       int32
	EnvFile            string
	Image              string
	ForceNewDeployment bool
	RegisterOnly       bool
}

// DeployResult reports what a deploy committed.
type DeployResult struct {
	DeployID          string
	TaskDefinitionArn string
	Revision          int32
	ServiceUpdated    bool
}

// TaskDefinitionARN derives the family identifier from the cluster/service
// naming convention. Describe accepts the family ARN without a revision and
// resolves to the latest active revision.
func (d *Deployer) TaskDefinitionARN(cluster, service string) string {
	return fmt.Sprintf("arn:aws:ecs:%s:%s:task-definition/%s-%s",
		d.cfg.AWS.Region, d.cfg.AWS.AccountID, cluster, service)
}

// RenderTaskDefinition fetches the current task definition and produces a
// registration draft from it. When the override set is non-empty every
// container's environment is replaced with exactly the override pairs;
// otherwise environments stay as fetched. An image override, when given,
// replaces every container's image. Everything else copies through unchanged.
// The draft does not touch platform state.
func (d *Deployer) RenderTaskDefinition(ctx context.Context, taskDefID, envFile, image string) (*ecs.RegisterTaskDefinitionInput, error) {
	env, err := RenderEnvironment(envFile)
	if err != nil {
		return nil, err
	}
	out, err := d.api.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: aws.String(taskDefID),
	})
	if err != nil {
		return nil, fmt.Errorf("describe task definition %s: %w", taskDefID, err)
	}
	td := out.TaskDefinition

	containers := make([]ecstypes.ContainerDefinition, len(td.ContainerDefinitions))
	copy(containers, td.ContainerDefinitions)
	for i := range containers {
		if len(env) > 0 {
			containers[i].Environment = env
		}
		if image != "" {
			containers[i].Image = aws.String(image)
		}
	}

	return &ecs.RegisterTaskDefinitionInput{
		Family:                  td.Family,
		ContainerDefinitions:    containers,
		Cpu:                     td.Cpu,
		Memory:                  td.Memory,
		ExecutionRoleArn:        td.ExecutionRoleArn,
		TaskRoleArn:             td.TaskRoleArn,
		NetworkMode:             td.NetworkMode,
		RequiresCompatibilities: td.RequiresCompatibilities,
		Volumes:                 td.Volumes,
	}, nil
}

// RegisterAndDeploy runs the whole sequence: render, register, and unless
// RegisterOnly is set, check the service and roll it to the new revision. The
// service update is fire-and-forget; the platform performs the rollout
// asynchronously.
func (d *Deployer) RegisterAndDeploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	deployID := uuid.NewString()
	logger := log.With().Str("deploy_id", deployID).Str("cluster", req.Cluster).Str("service", req.Service).Logger()

	taskDefID := d.TaskDefinitionARN(req.Cluster, req.Service)
	logger.Info().Str("task_definition", taskDefID).Msg("rendering task definition")

	draft, err := d.RenderTaskDefinition(ctx, taskDefID, req.EnvFile, req.Image)
	if err != nil {
		return nil, err
	}

	registered, err := d.api.RegisterTaskDefinition(ctx, draft)
	if err != nil {
		if dump, jsonErr := json.Marshal(draft); jsonErr == nil {
			logger.Error().RawJSON("draft", dump).Msg("task definition rejected")
		}
		return nil, fmt.Errorf("register task definition: %w", err)
	}
	newArn := aws.ToString(registered.TaskDefinition.TaskDefinitionArn)
	revision := registered.TaskDefinition.Revision
	logger.Info().Str("task_definition_arn", newArn).Int32("revision", revision).Msg("registered new revision")

	result := &DeployResult{DeployID: deployID, TaskDefinitionArn: newArn, Revision: revision}

	if req.RegisterOnly {
		logger.Info().Msg("register-only requested; skipping service update")
	} else {
		if err := d.updateService(ctx, req, newArn); err != nil {
			return nil, err
		}
		result.ServiceUpdated = true
		logger.Info().Int32("desired_count", req.DesiredCount).Bool("force", req.ForceNewDeployment).Msg("service update submitted")
	}

	if d.store != nil {
		rec := Deployment{
			ID:                deployID,
			CreatedAt:         time.Now().UTC(),
			Region:            d.cfg.AWS.Region,
			Cluster:           req.Cluster,
			Service:           req.Service,
			TaskDefinitionArn: newArn,
			DesiredCount:      req.DesiredCount,
			Forced:            req.ForceNewDeployment,
			RegisterOnly:      req.RegisterOnly,
		}
		if err := d.store.Record(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("failed to record deploy history")
		}
	}
	return result, nil
}

// updateService verifies the service is in a state this tool can roll and
// submits the update. Every check happens before the update call.
func (d *Deployer) updateService(ctx context.Context, req DeployRequest, taskDefArn string) error {
	out, err := d.api.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(req.Cluster),
		Services: []string{req.Service},
	})
	if err != nil {
		return fmt.Errorf("describe service %s: %w", req.Service, err)
	}
	for _, f := range out.Failures {
		return fmt.Errorf("%s is %s", aws.ToString(f.Arn), aws.ToString(f.Reason))
	}
	if len(out.Services) == 0 {
		return fmt.Errorf("%w: %s in cluster %s", ErrServiceNotFound, req.Service, req.Cluster)
	}
	svc := out.Services[0]
	if status := aws.ToString(svc.Status); status != "ACTIVE" {
		return fmt.Errorf("%w: %s is %s", ErrServiceNotActive, req.Service, status)
	}
	if svc.DeploymentController != nil && svc.DeploymentController.Type != ecstypes.DeploymentControllerTypeEcs {
		return fmt.Errorf("%w: %s", ErrUnsupportedController, svc.DeploymentController.Type)
	}

	_, err = d.api.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:            aws.String(req.Cluster),
		Service:            aws.String(req.Service),
		TaskDefinition:     aws.String(taskDefArn),
		DesiredCount:       aws.Int32(req.DesiredCount),
		ForceNewDeployment: req.ForceNewDeployment,
	})
	if err != nil {
		return fmt.Errorf("update service %s: %w", req.Service, err)
	}
	return nil
}
