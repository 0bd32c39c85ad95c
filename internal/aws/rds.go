package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	opserrors "github.com/systmms/devops/internal/errors"
)

// DefaultEventDuration is the event window, in minutes, used when none is given.
const DefaultEventDuration int32 = 1440

// DatabasesClient inspects RDS instances, Aurora clusters and their events.
type DatabasesClient struct {
	*Client
}

// NewDatabasesClient creates an RDS client.
func NewDatabasesClient(opts ...Option) (*DatabasesClient, error) {
	c, err := NewClient("DatabasesClient", opts...)
	if err != nil {
		return nil, err
	}
	return &DatabasesClient{Client: c}, nil
}

// ListInstances returns DB instances, optionally only the one named id.
// An unknown id yields an empty list.
func (c *DatabasesClient) ListInstances(ctx context.Context, id string) (instances []types.DBInstance, err error) {
	defer c.Observe("ListDBInstances", time.Now(), &err)

	api, err := c.RDS(ctx)
	if err != nil {
		return nil, err
	}

	input := &rds.DescribeDBInstancesInput{}
	if id != "" {
		input.DBInstanceIdentifier = awssdk.String(id)
	}

	paginator := rds.NewDescribeDBInstancesPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ErrorCode(err) == "DBInstanceNotFound" {
				return []types.DBInstance{}, nil
			}
			return nil, c.WrapError(err, "RDS describe_db_instances failed")
		}
		instances = append(instances, page.DBInstances...)
	}
	return instances, nil
}

// GetInstance returns the DB instance named id.
func (c *DatabasesClient) GetInstance(ctx context.Context, id string) (types.DBInstance, error) {
	instances, err := c.ListInstances(ctx, id)
	if err != nil {
		return types.DBInstance{}, err
	}
	if len(instances) == 0 {
		return types.DBInstance{}, opserrors.NewResourceNotFound("RDS DBInstance", id)
	}
	return instances[0], nil
}

// ListClusters returns DB clusters, optionally only the one named id.
// An unknown id yields an empty list.
func (c *DatabasesClient) ListClusters(ctx context.Context, id string) (clusters []types.DBCluster, err error) {
	defer c.Observe("ListDBClusters", time.Now(), &err)

	api, err := c.RDS(ctx)
	if err != nil {
		return nil, err
	}

	input := &rds.DescribeDBClustersInput{}
	if id != "" {
		input.DBClusterIdentifier = awssdk.String(id)
	}

	paginator := rds.NewDescribeDBClustersPaginator(api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ErrorCode(err) == "DBClusterNotFoundFault" {
				return []types.DBCluster{}, nil
			}
			return nil, c.WrapError(err, "RDS describe_db_clusters failed")
		}
		clusters = append(clusters, page.DBClusters...)
	}
	return clusters, nil
}

// GetCluster returns the DB cluster named id.
func (c *DatabasesClient) GetCluster(ctx context.Context, id string) (types.DBCluster, error) {
	clusters, err := c.ListClusters(ctx, id)
	if err != nil {
		return types.DBCluster{}, err
	}
	if len(clusters) == 0 {
		return types.DBCluster{}, opserrors.NewResourceNotFound("RDS DBCluster", id)
	}
	return clusters[0], nil
}

// GetInstanceEvents returns the events of DB instance id from the last
// duration minutes. A zero duration means DefaultEventDuration.
func (c *DatabasesClient) GetInstanceEvents(ctx context.Context, id string, duration int32) (events []types.Event, err error) {
	defer c.Observe("GetDBInstanceEvents", time.Now(), &err)

	if duration <= 0 {
		duration = DefaultEventDuration
	}

	api, err := c.RDS(ctx)
	if err != nil {
		return nil, err
	}

	paginator := rds.NewDescribeEventsPaginator(api, &rds.DescribeEventsInput{
		SourceIdentifier: awssdk.String(id),
		SourceType:       types.SourceTypeDbInstance,
		Duration:         awssdk.Int32(duration),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.WrapError(err, fmt.Sprintf("RDS describe_events(%s)", id))
		}
		events = append(events, page.Events...)
	}
	return events, nil
}
