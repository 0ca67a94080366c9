package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Controller configuration.
 *
 * Description:	The controller binary takes no arguments; everything
 *		optional lives in controller.yaml, searched in the
 *		locations below.  No file at all is fine and leaves
 *		every default in place.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type misc_config_s struct {
	DispatchPort    int    `yaml:"port"`             /* TCP port, default 3000. */
	LogDir          string `yaml:"log_dir"`          /* Event log directory.  Empty disables. */
	TimestampFormat string `yaml:"timestamp_format"` /* strftime format for event log rows. */
	DNSSD           bool   `yaml:"dns_sd"`           /* Announce the service over mDNS.  On unless disabled. */
	DNSSDName       string `yaml:"dns_sd_name"`      /* Override the announced name. */
	Debug           bool   `yaml:"debug"`
}

var config_search_path = []string{
	"controller.yaml",               // Current working directory
	"/etc/elevator/controller.yaml", // System install
}

/*-------------------------------------------------------------------
 *
 * Name:        config_load
 *
 * Purpose:     Locate and read controller.yaml.
 *
 * Returns:	The configuration, with defaults filled in.  A file
 *		that exists but cannot be parsed is an error; the
 *		operator should not run with half a config silently.
 *
 *--------------------------------------------------------------------*/

func config_load() (*misc_config_s, error) {
	var mc = &misc_config_s{
		DispatchPort: DEFAULT_DISPATCH_PORT,
		DNSSD:        true,
	}

	for _, path := range config_search_path {
		var data, readErr = os.ReadFile(path)
		if readErr != nil {
			continue
		}

		if err := yaml.Unmarshal(data, mc); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}

		if mc.DispatchPort <= 0 || mc.DispatchPort > 65535 {
			return nil, fmt.Errorf("config %s: port %d out of range", path, mc.DispatchPort)
		}

		logger.Debug("config loaded", "path", path)
		break
	}

	return mc, nil
}
