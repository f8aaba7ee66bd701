// Package discovery finds admin backends on the local network with mDNS,
// and lets a backend advertise itself.
//
// Backends register the "_adminkit._tcp" service type. TXT records carry
// optional metadata: "path" (API prefix), "scheme" (http or https) and
// "version".
//
// # Usage Example
//
//	backends, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, b := range backends {
//	    fmt.Printf("Found: %s at %s\n", b.Instance, b.BaseURL())
//	}
//
// Advertising:
//
//	ad, err := discovery.Advertise("adminkit-dev", 8460, map[string]string{"version": "1.0.0"})
//	defer ad.Shutdown()
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Backends must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
