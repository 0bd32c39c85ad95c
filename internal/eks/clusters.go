package eks

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	ekssdk "github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	awsclient "github.com/systmms/devops/internal/aws"
	opserrors "github.com/systmms/devops/internal/errors"
)

const resourceEKSCluster = "EKS Cluster"

// ClustersClient reads EKS clusters through the AWS control plane API.
type ClustersClient struct {
	*awsclient.Client
}

// NewClustersClient creates an EKS control plane client. It takes AWS
// options because clusters are AWS resources.
func NewClustersClient(opts ...awsclient.Option) (*ClustersClient, error) {
	c, err := awsclient.NewClient("ClustersClient", opts...)
	if err != nil {
		return nil, err
	}
	return &ClustersClient{Client: c}, nil
}

// ListClusters returns every cluster in the region with full details.
// Clusters deleted between listing and describing are skipped.
func (c *ClustersClient) ListClusters(ctx context.Context) (clusters []ekstypes.Cluster, err error) {
	defer c.Observe("ListClusters", time.Now(), &err)

	api, err := c.EKS(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	paginator := ekssdk.NewListClustersPaginator(api, &ekssdk.ListClustersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, c.WrapError(err, "EKS list_clusters failed")
		}
		names = append(names, page.Clusters...)
	}

	for _, name := range names {
		cluster, err := c.describe(ctx, api, name)
		if opserrors.IsNotFound(err) {
			c.Logger().Debug("cluster %s disappeared while listing", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, *cluster)
	}
	return clusters, nil
}

// GetCluster returns the cluster called name.
func (c *ClustersClient) GetCluster(ctx context.Context, name string) (cluster *ekstypes.Cluster, err error) {
	defer c.Observe("GetCluster", time.Now(), &err)

	api, err := c.EKS(ctx)
	if err != nil {
		return nil, err
	}
	return c.describe(ctx, api, name)
}

func (c *ClustersClient) describe(ctx context.Context, api awsclient.EKSAPI, name string) (*ekstypes.Cluster, error) {
	out, err := api.DescribeCluster(ctx, &ekssdk.DescribeClusterInput{Name: awssdk.String(name)})
	if err != nil {
		if awsclient.ErrorCode(err) == "ResourceNotFoundException" {
			return nil, opserrors.NewResourceNotFound(resourceEKSCluster, name).WithCause(err)
		}
		return nil, c.WrapError(err, fmt.Sprintf("EKS describe_cluster(%s)", name))
	}
	if out.Cluster == nil {
		return nil, opserrors.NewResourceNotFound(resourceEKSCluster, name)
	}
	return out.Cluster, nil
}
