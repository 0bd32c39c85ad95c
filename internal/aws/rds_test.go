package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	opserrors "github.com/systmms/devops/internal/errors"
)

func newDatabasesClient(t *testing.T, api *fakeRDS) *DatabasesClient {
	t.Helper()
	c, err := NewDatabasesClient(testOptions(WithRDSAPI(api))...)
	require.NoError(t, err)
	return c
}

func TestDatabases_ListInstancesPaginates(t *testing.T) {
	api := &fakeRDS{instances: []*rds.DescribeDBInstancesOutput{
		{DBInstances: []types.DBInstance{{DBInstanceIdentifier: awssdk.String("db-1")}}, Marker: awssdk.String("m1")},
		{DBInstances: []types.DBInstance{{DBInstanceIdentifier: awssdk.String("db-2")}}},
	}}
	c := newDatabasesClient(t, api)

	got, err := c.ListInstances(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, api.instanceCalls)
}

func TestDatabases_GetInstanceNotFound(t *testing.T) {
	api := &fakeRDS{instancesErr: apiError(404, "DBInstanceNotFound", "DBInstance db-x not found.")}
	c := newDatabasesClient(t, api)

	list, err := c.ListInstances(context.Background(), "db-x")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = c.GetInstance(context.Background(), "db-x")
	require.Error(t, err)
	e, ok := opserrors.As(err)
	require.True(t, ok)
	assert.Equal(t, opserrors.KindNotFound, e.Kind)
	assert.Equal(t, "RDS DBInstance", e.ResourceType)
	assert.Equal(t, "db-x", e.Identifier)
}

func TestDatabases_Clusters(t *testing.T) {
	api := &fakeRDS{clusters: []*rds.DescribeDBClustersOutput{
		{DBClusters: []types.DBCluster{{DBClusterIdentifier: awssdk.String("aurora-1")}}},
	}}
	c := newDatabasesClient(t, api)

	got, err := c.GetCluster(context.Background(), "aurora-1")
	require.NoError(t, err)
	assert.Equal(t, "aurora-1", *got.DBClusterIdentifier)

	api.clustersErr = apiError(404, "DBClusterNotFoundFault", "missing")
	_, err = c.GetCluster(context.Background(), "aurora-2")
	assert.ErrorIs(t, err, opserrors.ErrNotFound)

	api.clustersErr = apiError(500, "InternalFailure", "boom")
	_, err = c.ListClusters(context.Background(), "")
	assert.ErrorIs(t, err, opserrors.ErrAWSAPI)
}

func TestDatabases_GetInstanceEvents(t *testing.T) {
	api := &fakeRDS{events: &rds.DescribeEventsOutput{
		Events: []types.Event{{Message: awssdk.String("DB instance restarted")}},
	}}
	c := newDatabasesClient(t, api)

	events, err := c.GetInstanceEvents(context.Background(), "db-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int32(1440), *api.eventsInput.Duration)
	assert.Equal(t, types.SourceTypeDbInstance, api.eventsInput.SourceType)
	assert.Equal(t, "db-1", *api.eventsInput.SourceIdentifier)

	_, err = c.GetInstanceEvents(context.Background(), "db-1", 60)
	require.NoError(t, err)
	assert.Equal(t, int32(60), *api.eventsInput.Duration)
}
