package elevator

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the dispatch service using DNS-SD.
 *
 * Description:
 *
 *     A building full of panels and test rigs gets tiresome to point
 *     at the controller by IP address and port.  Announcing the
 *     dispatch endpoint over mDNS/DNS-SD lets them find it on the
 *     local network by name.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package for
 *     cross-platform mDNS/DNS-SD service announcement without
 *     requiring any system daemon or C library dependencies.
 */

import (
	"context"
	"os"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_elevator._tcp"

func dns_sd_default_service_name() string {
	var hostname, err = os.Hostname()
	if err != nil || hostname == "" {
		return "Elevator Controller"
	}

	return "Elevator Controller on " + hostname
}

func dns_sd_announce(name string, port int) {
	if name == "" {
		name = dns_sd_default_service_name()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("DNS-SD: Failed to create service: %v\n", svErr)

		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("DNS-SD: Failed to create responder: %v\n", rpErr)

		return
	}

	var _, addErr = rp.Add(sv)
	if addErr != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("DNS-SD: Failed to add service: %v\n", addErr)

		return
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("DNS-SD: Announcing dispatch TCP on port %d as '%s'\n", port, name)

	go func() {
		var respondErr = rp.Respond(context.Background())
		if respondErr != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("DNS-SD: Responder error: %v\n", respondErr)
		}
	}()
}
