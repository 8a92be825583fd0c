package core

var (
	_ PayloadSigner   = (*BodySigner)(nil)
	_ RetryPolicy     = (*ExponentialBackoff)(nil)
	_ Sender          = (*HTTPSender)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = (*EnvRawConfigLoader)(nil)
	_ RawConfigLoader = staticRawConfigLoader{}
)
