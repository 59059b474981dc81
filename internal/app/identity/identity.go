// Package identity works out who this node is on the mesh.
package identity

import (
	"errors"
	"fmt"
	"net"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/config"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

var ErrNoHardwareAddr = errors.New("identity: no hardware address to derive node id from")

// FromHardwareAddr takes the low 24 bits of a MAC address.
func FromHardwareAddr(mac net.HardwareAddr) (domain.NodeID, error) {
	if len(mac) < 3 {
		return 0, ErrNoHardwareAddr
	}
	var v uint64
	for _, b := range mac {
		v = v<<8 | uint64(b)
	}
	id := domain.NodeID(v & 0xFFFFFF)
	if id == 0 {
		return 0, ErrNoHardwareAddr
	}
	return id, nil
}

// Resolve builds the node identity from configuration, deriving missing
// fields. addrs supplies hardware addresses and may be nil to use the host's.
func Resolve(cfg config.NodeConfig, addrs func() ([]net.HardwareAddr, error)) (domain.Identity, error) {
	var id domain.NodeID
	if cfg.ID != "" {
		parsed, err := config.ParseNodeID(cfg.ID)
		if err != nil {
			return domain.Identity{}, err
		}
		id = parsed
	} else {
		if addrs == nil {
			addrs = hostAddrs
		}
		macs, err := addrs()
		if err != nil {
			return domain.Identity{}, fmt.Errorf("list interfaces: %w", err)
		}
		for _, mac := range macs {
			if derived, err := FromHardwareAddr(mac); err == nil {
				id = derived
				break
			}
		}
		if id == 0 {
			return domain.Identity{}, ErrNoHardwareAddr
		}
	}

	ident := domain.Identity{
		ID:        id,
		Name:      cfg.Name,
		ShortName: cfg.ShortName,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
	}
	if ident.Latitude == 0 && ident.Longitude == 0 {
		ident.Latitude, ident.Longitude = domain.DefaultLatitude, domain.DefaultLongitude
	}
	if ident.Name == "" {
		ident.Name = "Baltic-" + id.Hex()
	}
	if ident.ShortName == "" {
		ident.ShortName = "BS-" + (id & 0xFFF).Hex()
	}
	return ident, nil
}

func hostAddrs() ([]net.HardwareAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []net.HardwareAddr
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || len(ifc.HardwareAddr) == 0 {
			continue
		}
		out = append(out, ifc.HardwareAddr)
	}
	return out, nil
}
