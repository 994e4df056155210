// Package naming maps legacy service identifiers to client package names.
package naming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// PackagePrefix marks an identifier that is already a client package name.
const PackagePrefix = "@aws-sdk/"

// clientPrefix is the package name prefix of every service client.
const clientPrefix = PackagePrefix + "client-"

// legacyServices maps lowercased legacy service names to client package suffixes.
var legacyServices = map[string]string{
	"acm":                            "acm",
	"apigateway":                     "api-gateway",
	"apigatewayv2":                   "apigatewayv2",
	"appsync":                        "appsync",
	"athena":                         "athena",
	"autoscaling":                    "auto-scaling",
	"backup":                         "backup",
	"batch":                          "batch",
	"cloudformation":                 "cloudformation",
	"cloudfront":                     "cloudfront",
	"cloudtrail":                     "cloudtrail",
	"cloudwatch":                     "cloudwatch",
	"cloudwatchevents":               "cloudwatch-events",
	"cloudwatchlogs":                 "cloudwatch-logs",
	"codebuild":                      "codebuild",
	"codecommit":                     "codecommit",
	"codepipeline":                   "codepipeline",
	"cognitoidentity":                "cognito-identity",
	"cognitoidentityserviceprovider": "cognito-identity-provider",
	"configservice":                  "config-service",
	"dynamodb":                       "dynamodb",
	"ec2":                            "ec2",
	"ecr":                            "ecr",
	"ecs":                            "ecs",
	"efs":                            "efs",
	"eks":                            "eks",
	"elasticache":                    "elasticache",
	"elb":                            "elastic-load-balancing",
	"elbv2":                          "elastic-load-balancing-v2",
	"emr":                            "emr",
	"es":                             "elasticsearch-service",
	"eventbridge":                    "eventbridge",
	"firehose":                       "firehose",
	"glue":                           "glue",
	"iam":                            "iam",
	"iot":                            "iot",
	"kinesis":                        "kinesis",
	"kms":                            "kms",
	"lambda":                         "lambda",
	"opensearch":                     "opensearch",
	"organizations":                  "organizations",
	"ram":                            "ram",
	"rds":                            "rds",
	"redshift":                       "redshift",
	"resourcegroupstaggingapi":       "resource-groups-tagging-api",
	"route53":                        "route-53",
	"s3":                             "s3",
	"s3control":                      "s3-control",
	"sagemaker":                      "sagemaker",
	"secretsmanager":                 "secrets-manager",
	"servicediscovery":               "servicediscovery",
	"ses":                            "ses",
	"sesv2":                          "sesv2",
	"sns":                            "sns",
	"sqs":                            "sqs",
	"ssm":                            "ssm",
	"ssoadmin":                       "sso-admin",
	"stepfunctions":                  "sfn",
	"sts":                            "sts",
	"wafv2":                          "wafv2",
	"xray":                           "xray",
}

// ResolvePackageName maps a service identifier to its client package name.
// Identifiers that already name a package are returned unchanged.
func ResolvePackageName(service string) (string, error) {
	if IsPackageName(service) {
		return service, nil
	}

	suffix, ok := legacyServices[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return "", engine.NewPermanentError(
			fmt.Sprintf("Client package for service %s does not exist.", service), nil).
			WithCode(engine.ErrCodeUnknownService).
			WithDetail("service", service)
	}

	return clientPrefix + suffix, nil
}

// IsPackageName reports whether the identifier is already a client package name.
func IsPackageName(service string) bool {
	return strings.HasPrefix(service, PackagePrefix)
}

// LegacyServices returns the supported legacy service names, sorted.
func LegacyServices() []string {
	names := make([]string, 0, len(legacyServices))
	for name := range legacyServices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
