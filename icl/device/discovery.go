package device

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/horiba-icl/icl-go/icl"
	"github.com/horiba-icl/icl-go/icl/iclerr"
)

// descriptor is a parsed device-list entry: an index and the device's
// reported type string. Both wire shapes discovery accepts (§4.4) reduce
// to this.
type descriptor struct {
	index      int
	deviceType string
}

var deviceTypePattern = regexp.MustCompile(`deviceType:\s*(.*?),`)

// discover runs "<class>_discover" followed by "<class>_list" and returns
// the parsed descriptors. errorOnNoDevice controls whether a zero count
// from _discover is fatal.
func discover(ctx context.Context, transport *icl.Transport, class string, errorOnNoDevice bool, logger *slog.Logger) ([]descriptor, error) {
	discoverCmd := icl.NewCommand(class+"_discover", nil)
	discoverResp, err := transport.RequestWithResponse(ctx, discoverCmd, DefaultCommandTimeout)
	if err != nil {
		return nil, fmt.Errorf("icl: %s_discover: %w", class, err)
	}

	count, _ := toInt(discoverResp.Results["count"])
	if count == 0 && errorOnNoDevice {
		return nil, &NoDevicesFoundError{Class: class}
	}

	listCmd := icl.NewCommand(class+"_list", nil)
	listResp, err := transport.RequestWithResponse(ctx, listCmd, DefaultCommandTimeout)
	if err != nil {
		return nil, fmt.Errorf("icl: %s_list: %w", class, err)
	}

	descriptors, path, err := parseDeviceList(listResp.Results)
	if err != nil {
		return nil, fmt.Errorf("icl: parsing %s_list response: %w", class, err)
	}

	logger.Debug("icl: device list parse path", "class", class, "path", path, "count", len(descriptors))
	return descriptors, nil
}

// parseDeviceList accepts both wire shapes seen across ICL versions: a
// list of structured maps (canonical, preferred when present) and an
// object keyed by "indexN: ..." strings whose value embeds "deviceType:
// X,". It returns which path was taken for logging (spec §4.4, §9 open
// question).
func parseDeviceList(results map[string]any) ([]descriptor, string, error) {
	if raw, ok := results["devices"]; ok {
		if list, ok := raw.([]any); ok {
			descriptors, err := parseStructuredList(list)
			if err != nil {
				return nil, "", err
			}
			return descriptors, "structured", nil
		}
	}

	descriptors, err := parseLegacyObjectList(results)
	if err != nil {
		return nil, "", err
	}
	return descriptors, "legacy", nil
}

func parseStructuredList(list []any) ([]descriptor, error) {
	descriptors := make([]descriptor, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("device list entry is not an object: %v", entry)
		}
		index, ok := toInt(m["index"])
		if !ok {
			return nil, fmt.Errorf("device list entry missing integer index: %v", entry)
		}
		deviceType, _ := m["deviceType"].(string)
		descriptors = append(descriptors, descriptor{index: index, deviceType: strings.TrimSpace(deviceType)})
	}
	return descriptors, nil
}

func parseLegacyObjectList(results map[string]any) ([]descriptor, error) {
	descriptors := make([]descriptor, 0, len(results))
	for key, value := range results {
		if key == "count" {
			continue
		}

		strValue, ok := value.(string)
		if !ok {
			continue
		}

		indexPart := strings.SplitN(key, ":", 2)[0]
		indexPart = strings.TrimSpace(strings.ReplaceAll(indexPart, "index", ""))
		index, err := strconv.Atoi(indexPart)
		if err != nil {
			return nil, fmt.Errorf("failed to parse device index from key %q: %w", key, err)
		}

		match := deviceTypePattern.FindStringSubmatch(strValue)
		if match == nil {
			return nil, fmt.Errorf("failed to find deviceType in %q", strValue)
		}

		descriptors = append(descriptors, descriptor{index: index, deviceType: strings.TrimSpace(match[1])})
	}
	return descriptors, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

// discoverCCDs runs discovery for the ccd class and constructs handles.
func discoverCCDs(ctx context.Context, transport *icl.Transport, catalogue *iclerr.Catalogue, errorOnNoDevice bool, logger *slog.Logger) ([]*CCD, error) {
	descriptors, err := discover(ctx, transport, "ccd", errorOnNoDevice, logger)
	if err != nil {
		return nil, err
	}
	ccds := make([]*CCD, 0, len(descriptors))
	for _, d := range descriptors {
		ccds = append(ccds, newCCD(d.index, d.deviceType, transport, catalogue, logger))
	}
	return ccds, nil
}

// discoverMonochromators runs discovery for the mono class and constructs
// handles.
func discoverMonochromators(ctx context.Context, transport *icl.Transport, catalogue *iclerr.Catalogue, errorOnNoDevice bool, logger *slog.Logger) ([]*Monochromator, error) {
	descriptors, err := discover(ctx, transport, "mono", errorOnNoDevice, logger)
	if err != nil {
		return nil, err
	}
	monos := make([]*Monochromator, 0, len(descriptors))
	for _, d := range descriptors {
		monos = append(monos, newMonochromator(d.index, d.deviceType, transport, catalogue, logger))
	}
	return monos, nil
}
