package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	opserrors "github.com/systmms/devops/internal/errors"
)

const resourceEC2Instance = "EC2 Instance"

// InstancesClient lists, inspects, starts and stops EC2 instances.
type InstancesClient struct {
	*Client
}

// NewInstancesClient creates an EC2 client.
func NewInstancesClient(opts ...Option) (*InstancesClient, error) {
	c, err := NewClient("InstancesClient", opts...)
	if err != nil {
		return nil, err
	}
	return &InstancesClient{Client: c}, nil
}

// ListInstances returns every instance matching filters and ids, flattened
// out of their reservations. Unknown instance ids yield an empty list.
func (c *InstancesClient) ListInstances(ctx context.Context, filters []types.Filter, ids []string) (instances []types.Instance, err error) {
	defer c.Observe("ListInstances", time.Now(), &err)

	api, err := c.EC2(ctx)
	if err != nil {
		return nil, err
	}

	input := &ec2.DescribeInstancesInput{}
	if len(filters) > 0 {
		input.Filters = filters
	}
	if len(ids) > 0 {
		input.InstanceIds = ids
	}

	paginator := ec2.NewDescribeInstancesPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ErrorCode(err) == "InvalidInstanceID.NotFound" {
				return []types.Instance{}, nil
			}
			return nil, c.WrapError(err, "EC2 describe_instances failed")
		}
		for _, reservation := range page.Reservations {
			instances = append(instances, reservation.Instances...)
		}
	}

	c.Logger().Debug("listed %d instances", len(instances))
	return instances, nil
}

// GetInstance returns a single instance.
func (c *InstancesClient) GetInstance(ctx context.Context, id string) (types.Instance, error) {
	instances, err := c.ListInstances(ctx, nil, []string{id})
	if err != nil {
		return types.Instance{}, err
	}
	if len(instances) == 0 {
		return types.Instance{}, opserrors.NewResourceNotFound(resourceEC2Instance, id)
	}
	return instances[0], nil
}

// ListRunningInstances returns the instances in the running state.
func (c *InstancesClient) ListRunningInstances(ctx context.Context) ([]types.Instance, error) {
	return c.ListInstances(ctx, []types.Filter{
		{Name: awssdk.String("instance-state-name"), Values: []string{"running"}},
	}, nil)
}

// GetInstanceStatus returns the instance and system status checks for id,
// including instances that are not running.
func (c *InstancesClient) GetInstanceStatus(ctx context.Context, id string) (status types.InstanceStatus, err error) {
	defer c.Observe("GetInstanceStatus", time.Now(), &err)

	api, err := c.EC2(ctx)
	if err != nil {
		return types.InstanceStatus{}, err
	}

	out, err := api.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
		InstanceIds:         []string{id},
		IncludeAllInstances: awssdk.Bool(true),
	})
	if err != nil {
		if ErrorCode(err) == "InvalidInstanceID.NotFound" {
			return types.InstanceStatus{}, opserrors.NewResourceNotFound(resourceEC2Instance, id)
		}
		return types.InstanceStatus{}, c.WrapError(err, fmt.Sprintf("describe_instance_status(%s)", id))
	}
	if len(out.InstanceStatuses) == 0 {
		return types.InstanceStatus{}, opserrors.NewResourceNotFound(resourceEC2Instance, id)
	}
	return out.InstanceStatuses[0], nil
}

// StopInstance stops id and returns its state transition.
func (c *InstancesClient) StopInstance(ctx context.Context, id string) (change types.InstanceStateChange, err error) {
	defer c.Observe("StopInstance", time.Now(), &err)

	api, err := c.EC2(ctx)
	if err != nil {
		return types.InstanceStateChange{}, err
	}

	out, err := api.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return types.InstanceStateChange{}, c.WrapError(err, fmt.Sprintf("stop_instances(%s)", id))
	}
	if len(out.StoppingInstances) == 0 {
		return types.InstanceStateChange{}, opserrors.NewAWSAPIError(fmt.Sprintf("stop_instances returned empty response for %s", id), 0, nil)
	}

	c.Logger().Info("stopping instance %s", id)
	return out.StoppingInstances[0], nil
}

// StartInstance starts id and returns its state transition.
func (c *InstancesClient) StartInstance(ctx context.Context, id string) (change types.InstanceStateChange, err error) {
	defer c.Observe("StartInstance", time.Now(), &err)

	api, err := c.EC2(ctx)
	if err != nil {
		return types.InstanceStateChange{}, err
	}

	out, err := api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return types.InstanceStateChange{}, c.WrapError(err, fmt.Sprintf("start_instances(%s)", id))
	}
	if len(out.StartingInstances) == 0 {
		return types.InstanceStateChange{}, opserrors.NewAWSAPIError(fmt.Sprintf("start_instances returned empty response for %s", id), 0, nil)
	}

	c.Logger().Info("starting instance %s", id)
	return out.StartingInstances[0], nil
}
