package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/spf13/cobra"

	awsclient "github.com/systmms/devops/internal/aws"
)

// NewAWSCommand creates the aws command group.
func NewAWSCommand(env *Env) *cobra.Command {
	var region, profile string

	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Inspect and operate EC2, RDS, Lambda and CloudWatch resources",
	}
	cmd.PersistentFlags().StringVar(&region, "region", "", "AWS region (overrides config)")
	cmd.PersistentFlags().StringVar(&profile, "profile", "", "AWS shared config profile (overrides config)")

	opts := func() ([]awsclient.Option, error) {
		var extra []awsclient.Option
		if region != "" {
			extra = append(extra, awsclient.WithRegion(region))
		}
		if profile != "" {
			extra = append(extra, awsclient.WithProfile(profile))
		}
		return env.awsOptions(extra...)
	}

	cmd.AddCommand(
		newAWSListInstancesCommand(env, opts),
		newAWSDescribeInstanceCommand(env, opts),
		newAWSInstanceStatusCommand(env, opts),
		newAWSInstanceStateCommand(env, opts, "start-instance", "Start an EC2 instance"),
		newAWSInstanceStateCommand(env, opts, "stop-instance", "Stop an EC2 instance"),
		newAWSListDBInstancesCommand(env, opts),
		newAWSDescribeDBInstanceCommand(env, opts),
		newAWSListDBClustersCommand(env, opts),
		newAWSDBEventsCommand(env, opts),
		newAWSListFunctionsCommand(env, opts),
		newAWSDescribeFunctionCommand(env, opts),
		newAWSInvokeFunctionCommand(env, opts),
		newAWSListLogGroupsCommand(env, opts),
		newAWSFilterLogsCommand(env, opts),
		newAWSListMetricsCommand(env, opts),
	)
	return cmd
}

type awsOptsFunc func() ([]awsclient.Option, error)

func instancesClient(opts awsOptsFunc) (*awsclient.InstancesClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return awsclient.NewInstancesClient(o...)
}

func databasesClient(opts awsOptsFunc) (*awsclient.DatabasesClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return awsclient.NewDatabasesClient(o...)
}

func functionsClient(opts awsOptsFunc) (*awsclient.FunctionsClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return awsclient.NewFunctionsClient(o...)
}

func cloudWatchClient(opts awsOptsFunc) (*awsclient.CloudWatchClient, error) {
	o, err := opts()
	if err != nil {
		return nil, err
	}
	return awsclient.NewCloudWatchClient(o...)
}

func instanceName(inst ec2types.Instance) string {
	for _, tag := range inst.Tags {
		if awssdk.ToString(tag.Key) == "Name" {
			return awssdk.ToString(tag.Value)
		}
	}
	return ""
}

func instanceTable(instances []ec2types.Instance) func(io.Writer) {
	return func(w io.Writer) {
		row(w, "INSTANCE ID", "NAME", "TYPE", "STATE", "PRIVATE IP", "AZ")
		for _, inst := range instances {
			state := ""
			if inst.State != nil {
				state = string(inst.State.Name)
			}
			az := ""
			if inst.Placement != nil {
				az = awssdk.ToString(inst.Placement.AvailabilityZone)
			}
			row(w,
				awssdk.ToString(inst.InstanceId),
				orDash(instanceName(inst)),
				string(inst.InstanceType),
				state,
				orDash(awssdk.ToString(inst.PrivateIpAddress)),
				orDash(az),
			)
		}
	}
}

func newAWSListInstancesCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	var running bool

	cmd := &cobra.Command{
		Use:   "list-instances",
		Short: "List EC2 instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := instancesClient(opts)
			if err != nil {
				return err
			}

			var instances []ec2types.Instance
			if running {
				instances, err = c.ListRunningInstances(cmd.Context())
			} else {
				instances, err = c.ListInstances(cmd.Context(), nil, nil)
			}
			if err != nil {
				return err
			}
			return env.Render(instances, instanceTable(instances))
		},
	}
	cmd.Flags().BoolVar(&running, "running", false, "Only show running instances")
	return cmd
}

func newAWSDescribeInstanceCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "describe-instance INSTANCE_ID",
		Short: "Show one EC2 instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := instancesClient(opts)
			if err != nil {
				return err
			}
			inst, err := c.GetInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return env.Render(inst, instanceTable([]ec2types.Instance{inst}))
		},
	}
}

func newAWSInstanceStatusCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "instance-status INSTANCE_ID",
		Short: "Show EC2 instance and system status checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := instancesClient(opts)
			if err != nil {
				return err
			}
			status, err := c.GetInstanceStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return env.Render(status, func(w io.Writer) {
				row(w, "INSTANCE ID", "STATE", "INSTANCE CHECK", "SYSTEM CHECK")
				state, instCheck, sysCheck := "", "", ""
				if status.InstanceState != nil {
					state = string(status.InstanceState.Name)
				}
				if status.InstanceStatus != nil {
					instCheck = string(status.InstanceStatus.Status)
				}
				if status.SystemStatus != nil {
					sysCheck = string(status.SystemStatus.Status)
				}
				row(w, awssdk.ToString(status.InstanceId), orDash(state), orDash(instCheck), orDash(sysCheck))
			})
		},
	}
}

func newAWSInstanceStateCommand(env *Env, opts awsOptsFunc, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " INSTANCE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := instancesClient(opts)
			if err != nil {
				return err
			}

			var change ec2types.InstanceStateChange
			if use == "start-instance" {
				change, err = c.StartInstance(cmd.Context(), args[0])
			} else {
				change, err = c.StopInstance(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return env.Render(change, func(w io.Writer) {
				row(w, "INSTANCE ID", "PREVIOUS", "CURRENT")
				prev, cur := "", ""
				if change.PreviousState != nil {
					prev = string(change.PreviousState.Name)
				}
				if change.CurrentState != nil {
					cur = string(change.CurrentState.Name)
				}
				row(w, awssdk.ToString(change.InstanceId), orDash(prev), orDash(cur))
			})
		},
	}
}

func newAWSListDBInstancesCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list-db-instances",
		Short: "List RDS database instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := databasesClient(opts)
			if err != nil {
				return err
			}
			dbs, err := c.ListInstances(cmd.Context(), "")
			if err != nil {
				return err
			}
			return env.Render(dbs, func(w io.Writer) {
				row(w, "IDENTIFIER", "ENGINE", "CLASS", "STATUS", "MULTI-AZ")
				for _, db := range dbs {
					row(w,
						awssdk.ToString(db.DBInstanceIdentifier),
						awssdk.ToString(db.Engine),
						awssdk.ToString(db.DBInstanceClass),
						awssdk.ToString(db.DBInstanceStatus),
						awssdk.ToBool(db.MultiAZ),
					)
				}
			})
		},
	}
}

func newAWSDescribeDBInstanceCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "describe-db-instance IDENTIFIER",
		Short: "Show one RDS database instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := databasesClient(opts)
			if err != nil {
				return err
			}
			db, err := c.GetInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return env.Render(db, func(w io.Writer) {
				endpoint := ""
				if db.Endpoint != nil {
					endpoint = fmt.Sprintf("%s:%d", awssdk.ToString(db.Endpoint.Address), awssdk.ToInt32(db.Endpoint.Port))
				}
				row(w, "IDENTIFIER", awssdk.ToString(db.DBInstanceIdentifier))
				row(w, "ENGINE", fmt.Sprintf("%s %s", awssdk.ToString(db.Engine), awssdk.ToString(db.EngineVersion)))
				row(w, "STATUS", awssdk.ToString(db.DBInstanceStatus))
				row(w, "ENDPOINT", orDash(endpoint))
				row(w, "STORAGE (GiB)", awssdk.ToInt32(db.AllocatedStorage))
			})
		},
	}
}

func newAWSListDBClustersCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list-db-clusters",
		Short: "List RDS database clusters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := databasesClient(opts)
			if err != nil {
				return err
			}
			clusters, err := c.ListClusters(cmd.Context(), "")
			if err != nil {
				return err
			}
			return env.Render(clusters, func(w io.Writer) {
				row(w, "IDENTIFIER", "ENGINE", "STATUS", "MEMBERS")
				for _, cl := range clusters {
					row(w,
						awssdk.ToString(cl.DBClusterIdentifier),
						awssdk.ToString(cl.Engine),
						awssdk.ToString(cl.Status),
						len(cl.DBClusterMembers),
					)
				}
			})
		},
	}
}

func newAWSDBEventsCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	var duration int32

	cmd := &cobra.Command{
		Use:   "db-events IDENTIFIER",
		Short: "Show recent events for an RDS database instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := databasesClient(opts)
			if err != nil {
				return err
			}
			events, err := c.GetInstanceEvents(cmd.Context(), args[0], duration)
			if err != nil {
				return err
			}
			return env.Render(events, func(w io.Writer) {
				row(w, "TIME", "MESSAGE")
				for _, ev := range events {
					row(w, awssdk.ToTime(ev.Date).Format(time.RFC3339), awssdk.ToString(ev.Message))
				}
			})
		},
	}
	cmd.Flags().Int32Var(&duration, "duration", awsclient.DefaultEventDuration, "Look-back window in minutes")
	return cmd
}

func newAWSListFunctionsCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list-functions",
		Short: "List Lambda functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := functionsClient(opts)
			if err != nil {
				return err
			}
			fns, err := c.ListFunctions(cmd.Context())
			if err != nil {
				return err
			}
			return env.Render(fns, func(w io.Writer) {
				row(w, "NAME", "RUNTIME", "MEMORY", "TIMEOUT", "LAST MODIFIED")
				for _, fn := range fns {
					row(w,
						awssdk.ToString(fn.FunctionName),
						orDash(string(fn.Runtime)),
						awssdk.ToInt32(fn.MemorySize),
						awssdk.ToInt32(fn.Timeout),
						awssdk.ToString(fn.LastModified),
					)
				}
			})
		},
	}
}

func newAWSDescribeFunctionCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "describe-function NAME",
		Short: "Show the configuration of a Lambda function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := functionsClient(opts)
			if err != nil {
				return err
			}
			fn, err := c.GetFunctionConfiguration(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return env.Render(fn, func(w io.Writer) {
				row(w, "NAME", awssdk.ToString(fn.FunctionName))
				row(w, "RUNTIME", orDash(string(fn.Runtime)))
				row(w, "HANDLER", orDash(awssdk.ToString(fn.Handler)))
				row(w, "STATE", orDash(string(fn.State)))
				row(w, "MEMORY", awssdk.ToInt32(fn.MemorySize))
				row(w, "TIMEOUT", awssdk.ToInt32(fn.Timeout))
				row(w, "ROLE", orDash(awssdk.ToString(fn.Role)))
			})
		},
	}
}

func newAWSInvokeFunctionCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	var (
		payload string
		async   bool
	)

	cmd := &cobra.Command{
		Use:   "invoke-function NAME",
		Short: "Invoke a Lambda function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &body); err != nil {
					return fmt.Errorf("--payload is not valid JSON: %w", err)
				}
			}

			invocationType := lambdatypes.InvocationTypeRequestResponse
			if async {
				invocationType = lambdatypes.InvocationTypeEvent
			}

			c, err := functionsClient(opts)
			if err != nil {
				return err
			}
			result, err := c.Invoke(cmd.Context(), args[0], body, invocationType)
			if err != nil {
				return err
			}
			return env.Render(result, func(w io.Writer) {
				row(w, "STATUS", result.StatusCode)
				row(w, "VERSION", orDash(result.ExecutedVersion))
				if result.Payload != nil {
					out, _ := json.Marshal(result.Payload)
					row(w, "PAYLOAD", string(out))
				}
				if result.LogResult != "" {
					row(w, "LOG TAIL", "")
					_, _ = fmt.Fprintln(w, result.LogResult)
				}
			})
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "JSON event payload")
	cmd.Flags().BoolVar(&async, "async", false, "Invoke asynchronously (Event invocation)")
	return cmd
}

func newAWSListLogGroupsCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list-log-groups",
		Short: "List CloudWatch log groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cloudWatchClient(opts)
			if err != nil {
				return err
			}
			groups, err := c.ListLogGroups(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			return env.Render(groups, func(w io.Writer) {
				row(w, "NAME", "RETENTION (DAYS)", "STORED BYTES")
				for _, g := range groups {
					retention := "never expire"
					if g.RetentionInDays != nil {
						retention = fmt.Sprint(*g.RetentionInDays)
					}
					row(w, awssdk.ToString(g.LogGroupName), retention, awssdk.ToInt64(g.StoredBytes))
				}
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Log group name prefix")
	return cmd
}

func newAWSFilterLogsCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	var (
		pattern string
		minutes int
		limit   int32
	)

	cmd := &cobra.Command{
		Use:   "filter-logs LOG_GROUP",
		Short: "Search a CloudWatch log group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cloudWatchClient(opts)
			if err != nil {
				return err
			}
			end := time.Now()
			events, err := c.FilterLogEvents(cmd.Context(), args[0], pattern, awsclient.LogWindow{
				Start: end.Add(-time.Duration(minutes) * time.Minute),
				End:   end,
				Limit: limit,
			})
			if err != nil {
				return err
			}
			return env.Render(events, func(w io.Writer) {
				row(w, "TIME", "STREAM", "MESSAGE")
				for _, ev := range events {
					ts := time.UnixMilli(awssdk.ToInt64(ev.Timestamp)).UTC().Format(time.RFC3339)
					row(w, ts, awssdk.ToString(ev.LogStreamName), awssdk.ToString(ev.Message))
				}
			})
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "CloudWatch filter pattern")
	cmd.Flags().IntVar(&minutes, "minutes", 60, "Look-back window in minutes")
	cmd.Flags().Int32Var(&limit, "limit", awsclient.DefaultLogLimit, "Maximum number of events")
	return cmd
}

func newAWSListMetricsCommand(env *Env, opts awsOptsFunc) *cobra.Command {
	var namespace, name string

	cmd := &cobra.Command{
		Use:   "list-metrics",
		Short: "List CloudWatch metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cloudWatchClient(opts)
			if err != nil {
				return err
			}
			metrics, err := c.ListMetrics(cmd.Context(), namespace, name)
			if err != nil {
				return err
			}
			return env.Render(metrics, func(w io.Writer) {
				row(w, "NAMESPACE", "METRIC", "DIMENSIONS")
				for _, m := range metrics {
					dims := ""
					for i, d := range m.Dimensions {
						if i > 0 {
							dims += ","
						}
						dims += awssdk.ToString(d.Name) + "=" + awssdk.ToString(d.Value)
					}
					row(w, awssdk.ToString(m.Namespace), awssdk.ToString(m.MetricName), orDash(dims))
				}
			})
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "Metric namespace, e.g. AWS/EC2")
	cmd.Flags().StringVar(&name, "metric", "", "Metric name")
	return cmd
}
