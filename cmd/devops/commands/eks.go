package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"

	"github.com/systmms/devops/internal/eks"
)

// NewEKSCommand creates the eks command group.
func NewEKSCommand(env *Env) *cobra.Command {
	var namespace, kubeContext string

	cmd := &cobra.Command{
		Use:   "eks",
		Short: "Inspect EKS clusters and operate Kubernetes workloads",
	}
	cmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Kubernetes namespace (overrides config)")
	cmd.PersistentFlags().StringVar(&kubeContext, "context", "", "Kubeconfig context (overrides config)")

	opts := func() ([]eks.Option, error) {
		var extra []eks.Option
		if namespace != "" {
			extra = append(extra, eks.WithNamespace(namespace))
		}
		if kubeContext != "" {
			extra = append(extra, eks.WithKubeContext(kubeContext))
		}
		return env.eksOptions(extra...)
	}

	cmd.AddCommand(
		newEKSListClustersCommand(env),
		newEKSDescribeClusterCommand(env),
		newEKSListPodsCommand(env, opts),
		newEKSPodLogsCommand(env, opts),
		newEKSDeletePodCommand(env, opts),
		newEKSListDeploymentsCommand(env, opts),
		newEKSScaleDeploymentCommand(env, opts),
		newEKSRestartDeploymentCommand(env, opts),
		newEKSListServicesCommand(env, opts),
		newEKSGetEndpointsCommand(env, opts),
	)
	return cmd
}

type eksOptsFunc func() ([]eks.Option, error)

func clustersClient(env *Env) (*eks.ClustersClient, error) {
	o, err := env.awsOptions()
	if err != nil {
		return nil, err
	}
	return eks.NewClustersClient(o...)
}

func podsClient(opts eksOptsFunc) (*eks.PodsClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return eks.NewPodsClient(o...)
}

func deploymentsClient(opts eksOptsFunc) (*eks.DeploymentsClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return eks.NewDeploymentsClient(o...)
}

func servicesClient(opts eksOptsFunc) (*eks.ServicesClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return eks.NewServicesClient(o...)
}

func clusterTable(clusters []ekstypes.Cluster) func(io.Writer) {
	return func(w io.Writer) {
		row(w, "NAME", "VERSION", "STATUS", "ENDPOINT")
		for _, cl := range clusters {
			row(w,
				awssdk.ToString(cl.Name),
				awssdk.ToString(cl.Version),
				string(cl.Status),
				orDash(awssdk.ToString(cl.Endpoint)),
			)
		}
	}
}

func newEKSListClustersCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list-clusters",
		Short: "List EKS clusters in the region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clustersClient(env)
			if err != nil {
				return err
			}
			clusters, err := c.ListClusters(cmd.Context())
			if err != nil {
				return err
			}
			return env.Render(clusters, clusterTable(clusters))
		},
	}
}

func newEKSDescribeClusterCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "describe-cluster NAME",
		Short: "Show one EKS cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clustersClient(env)
			if err != nil {
				return err
			}
			cluster, err := c.GetCluster(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return env.Render(cluster, clusterTable([]ekstypes.Cluster{*cluster}))
		},
	}
}

func podReady(p corev1.Pod) string {
	ready := 0
	for _, cs := range p.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
	}
	return fmt.Sprintf("%d/%d", ready, len(p.Spec.Containers))
}

func podRestarts(p corev1.Pod) int32 {
	var n int32
	for _, cs := range p.Status.ContainerStatuses {
		n += cs.RestartCount
	}
	return n
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Round(time.Second).String()
}

func newEKSListPodsCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "list-pods",
		Short: "List pods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := podsClient(opts)
			if err != nil {
				return err
			}
			pods, err := c.ListPods(cmd.Context(), "", selector)
			if err != nil {
				return err
			}
			return env.Render(pods, func(w io.Writer) {
				row(w, "NAME", "READY", "STATUS", "RESTARTS", "NODE", "AGE")
				for _, p := range pods {
					row(w, p.Name, podReady(p), string(p.Status.Phase), podRestarts(p), orDash(p.Spec.NodeName), age(p.CreationTimestamp.Time))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "Label selector, e.g. app=api")
	return cmd
}

func newEKSPodLogsCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	var logOpts eks.LogOptions

	cmd := &cobra.Command{
		Use:   "get-pod-logs POD",
		Short: "Print the logs of a pod container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := podsClient(opts)
			if err != nil {
				return err
			}
			logs, err := c.GetPodLogs(cmd.Context(), args[0], "", logOpts)
			if err != nil {
				return err
			}
			if env.Output == OutputJSON {
				return env.Render(map[string]string{"pod": args[0], "logs": logs}, nil)
			}
			env.Printf("%s", logs)
			if !strings.HasSuffix(logs, "\n") {
				env.Printf("\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&logOpts.Container, "container", "c", "", "Container name")
	cmd.Flags().Int64Var(&logOpts.TailLines, "tail", eks.DefaultTailLines, "Number of lines from the end")
	cmd.Flags().BoolVar(&logOpts.Previous, "previous", false, "Logs of the previous container instance")
	return cmd
}

func newEKSDeletePodCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-pod POD",
		Short: "Delete a pod so its controller recreates it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := podsClient(opts)
			if err != nil {
				return err
			}
			if err := c.DeletePod(cmd.Context(), args[0], ""); err != nil {
				return err
			}
			env.Printf("pod/%s deleted\n", args[0])
			return nil
		},
	}
}

func newEKSListDeploymentsCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "list-deployments",
		Short: "List deployments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deploymentsClient(opts)
			if err != nil {
				return err
			}
			deployments, err := c.ListDeployments(cmd.Context(), "", selector)
			if err != nil {
				return err
			}
			return env.Render(deployments, func(w io.Writer) {
				row(w, "NAME", "READY", "UP-TO-DATE", "AVAILABLE", "AGE")
				for _, d := range deployments {
					var desired int32
					if d.Spec.Replicas != nil {
						desired = *d.Spec.Replicas
					}
					row(w,
						d.Name,
						fmt.Sprintf("%d/%d", d.Status.ReadyReplicas, desired),
						d.Status.UpdatedReplicas,
						d.Status.AvailableReplicas,
						age(d.CreationTimestamp.Time),
					)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "Label selector")
	return cmd
}

func newEKSScaleDeploymentCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "scale-deployment NAME REPLICAS",
		Short: "Set the replica count of a deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			replicas, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil || replicas < 0 {
				return fmt.Errorf("REPLICAS must be a non-negative integer, got %q", args[1])
			}

			c, err := deploymentsClient(opts)
			if err != nil {
				return err
			}
			if _, err := c.ScaleDeployment(cmd.Context(), args[0], int32(replicas), ""); err != nil {
				return err
			}
			env.Printf("deployment/%s scaled to %d\n", args[0], replicas)
			return nil
		},
	}
}

func newEKSRestartDeploymentCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "restart-deployment NAME",
		Short: "Trigger a rolling restart of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := deploymentsClient(opts)
			if err != nil {
				return err
			}
			if _, err := c.RestartDeployment(cmd.Context(), args[0], ""); err != nil {
				return err
			}
			env.Printf("deployment/%s restarted\n", args[0])
			return nil
		},
	}
}

func newEKSListServicesCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "list-services",
		Short: "List services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := servicesClient(opts)
			if err != nil {
				return err
			}
			services, err := c.ListServices(cmd.Context(), "", selector)
			if err != nil {
				return err
			}
			return env.Render(services, func(w io.Writer) {
				row(w, "NAME", "TYPE", "CLUSTER-IP", "PORTS")
				for _, s := range services {
					ports := make([]string, 0, len(s.Spec.Ports))
					for _, p := range s.Spec.Ports {
						ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
					}
					row(w, s.Name, string(s.Spec.Type), orDash(s.Spec.ClusterIP), orDash(strings.Join(ports, ",")))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "Label selector")
	return cmd
}

func newEKSGetEndpointsCommand(env *Env, opts eksOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get-endpoints SERVICE",
		Short: "Show the endpoints backing a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := servicesClient(opts)
			if err != nil {
				return err
			}
			slices, err := c.GetEndpoints(cmd.Context(), args[0], "")
			if err != nil {
				return err
			}
			return env.Render(slices, func(w io.Writer) {
				row(w, "SLICE", "ADDRESS", "READY", "TARGET")
				for _, s := range slices {
					for _, ep := range s.Endpoints {
						ready := ep.Conditions.Ready == nil || *ep.Conditions.Ready
						target := ""
						if ep.TargetRef != nil {
							target = ep.TargetRef.Kind + "/" + ep.TargetRef.Name
						}
						row(w, s.Name, strings.Join(ep.Addresses, ","), ready, orDash(target))
					}
				}
			})
		},
	}
}

