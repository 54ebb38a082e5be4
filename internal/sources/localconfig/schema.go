package localconfig

// Document is the on-disk endpoint configuration. JSON documents parse as
// well, since every JSON document is valid YAML.
//
//	regional_endpoints:
//	  ecs:
//	    cn-hangzhou: ecs-cn-hangzhou.aliyuncs.com
//	global_endpoints:
//	  ram: ram.aliyuncs.com
//	regions: [cn-hangzhou, cn-beijing]
//	location_code_mapping:
//	  cloudapi: apigateway
type Document struct {
	RegionalEndpoints   map[string]map[string]string `yaml:"regional_endpoints"`
	GlobalEndpoints     map[string]string            `yaml:"global_endpoints"`
	Regions             []string                     `yaml:"regions"`
	LocationCodeMapping map[string]string            `yaml:"location_code_mapping"`
}
