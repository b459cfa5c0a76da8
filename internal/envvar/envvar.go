package envvar

const (
	// Sam3labEnv is the environment variable used to determine the environment
	Sam3labEnv = "SAM3LAB_ENV"

	// Sam3labConfig is the environment variable used to locate the config file
	Sam3labConfig = "SAM3LAB_CONFIG"

	// Sam3labLogLevel is the environment variable used to override the log level
	Sam3labLogLevel = "SAM3LAB_LOG_LEVEL"

	// Sam3labOutputDir is the environment variable used to override the output directory
	Sam3labOutputDir = "SAM3LAB_OUTPUT_DIR"

	// HFToken is the access token read by the hub client
	HFToken = "HF_TOKEN"

	// HFTokenPath overrides the location of the stored hub token
	HFTokenPath = "HF_TOKEN_PATH"

	// HFHome is the root of the hub client's local files
	HFHome = "HF_HOME"

	// HFHubCache overrides the hub cache directory
	HFHubCache = "HF_HUB_CACHE"

	// HFEndpoint overrides the hub endpoint
	HFEndpoint = "HF_ENDPOINT"
)
