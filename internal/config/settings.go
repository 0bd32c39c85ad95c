package config

// Source records where a resolved value came from.
type Source string

const (
	SourceFile    Source = "file"
	SourceKeyring Source = "keyring"
	SourceDefault Source = "default"
)

// Setting describes one resolvable configuration value.
type Setting struct {
	Name    string
	EnvVars []string
	Path    []string
	Default string
	Secret  bool

	field func(*Definition) *string
}

var settings = []Setting{
	{
		Name:    "aws_region",
		EnvVars: []string{"AWS_DEFAULT_REGION", "AWS_REGION"},
		Path:    []string{"aws", "region"},
		Default: "us-east-1",
		field: func(d *Definition) *string {
			if d.AWS == nil {
				return nil
			}
			return d.AWS.Region
		},
	},
	{
		Name:    "aws_profile",
		EnvVars: []string{"AWS_PROFILE"},
		Path:    []string{"aws", "profile"},
		field: func(d *Definition) *string {
			if d.AWS == nil {
				return nil
			}
			return d.AWS.Profile
		},
	},
	{
		Name:    "aws_role_arn",
		EnvVars: []string{"AWS_ROLE_ARN"},
		Path:    []string{"aws", "role_arn"},
		field: func(d *Definition) *string {
			if d.AWS == nil {
				return nil
			}
			return d.AWS.RoleARN
		},
	},
	{
		Name:    "eks_kubeconfig",
		EnvVars: []string{"KUBECONFIG"},
		Path:    []string{"eks", "kubeconfig"},
		field: func(d *Definition) *string {
			if d.EKS == nil {
				return nil
			}
			return d.EKS.Kubeconfig
		},
	},
	{
		Name:    "eks_context",
		EnvVars: []string{"KUBE_CONTEXT"},
		Path:    []string{"eks", "context"},
		field: func(d *Definition) *string {
			if d.EKS == nil {
				return nil
			}
			return d.EKS.Context
		},
	},
	{
		Name:    "eks_namespace",
		EnvVars: []string{"KUBE_NAMESPACE"},
		Path:    []string{"eks", "namespace"},
		Default: "default",
		field: func(d *Definition) *string {
			if d.EKS == nil {
				return nil
			}
			return d.EKS.Namespace
		},
	},
	{
		Name:    "datadog_api_key",
		EnvVars: []string{"DD_API_KEY"},
		Path:    []string{"datadog", "api_key"},
		Secret:  true,
		field: func(d *Definition) *string {
			if d.Datadog == nil {
				return nil
			}
			return d.Datadog.APIKey
		},
	},
	{
		Name:    "datadog_app_key",
		EnvVars: []string{"DD_APP_KEY"},
		Path:    []string{"datadog", "app_key"},
		Secret:  true,
		field: func(d *Definition) *string {
			if d.Datadog == nil {
				return nil
			}
			return d.Datadog.AppKey
		},
	},
	{
		Name:    "datadog_site",
		EnvVars: []string{"DD_SITE"},
		Path:    []string{"datadog", "site"},
		Default: "datadoghq.com",
		field: func(d *Definition) *string {
			if d.Datadog == nil {
				return nil
			}
			return d.Datadog.Site
		},
	},
}

func settingByName(name string) (Setting, bool) {
	for _, s := range settings {
		if s.Name == name {
			return s, true
		}
	}
	return Setting{}, false
}

// SettingNames lists every known setting name in table order.
func SettingNames() []string {
	names := make([]string, 0, len(settings))
	for _, s := range settings {
		names = append(names, s.Name)
	}
	return names
}
