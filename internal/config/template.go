package config

// Template is written by 'devops config init'. Environment variables always
// take precedence over the values below.
const Template = `# devops-framework configuration
#
# Lookup order for every setting: environment variable, this file, default.

aws:
  region: us-east-1          # AWS_DEFAULT_REGION / AWS_REGION
  # profile: default         # AWS_PROFILE
  # role_arn: arn:aws:iam::123456789012:role/troubleshooter   # AWS_ROLE_ARN

eks:
  namespace: default         # KUBE_NAMESPACE
  # kubeconfig: ~/.kube/config   # KUBECONFIG
  # context: my-cluster      # KUBE_CONTEXT

datadog:
  site: datadoghq.com        # DD_SITE
  # api_key: ""              # DD_API_KEY
  # app_key: ""              # DD_APP_KEY
`
