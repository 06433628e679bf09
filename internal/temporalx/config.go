package temporalx

import (
	"github.com/liquidinvestigations/hoover4/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.Str("TEMPORAL_ADDRESS", "temporal:7233"),
		Namespace: envutil.Str("TEMPORAL_NAMESPACE", "default"),
	}
}
