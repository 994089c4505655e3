package patch

import (
	"fmt"
	"time"

	"github.com/rzbill/provision/pkg/types"
)

// patchReports replaces all reports on null, and otherwise merges the
// reports object into the node's reports by id, where null removes one.
func patchReports(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	var reports types.Reports
	switch value.Kind() {
	case KindNull:
		reports = types.Reports{}
	case KindObject:
		reports = node.Reports
		for _, member := range value.Members() {
			if member.Value.IsNull() {
				reports = reports.Without(member.Name)
				continue
			}
			report, err := reportFromValue(member.Name, member.Value, p.clock.Now())
			if err != nil {
				return types.Node{}, err
			}
			reports = reports.With(report)
		}
	default:
		return types.Node{}, kindError(KindObject, value)
	}

	patched := node.WithReports(reports)

	hadHardFail := node.Reports.HasHardFail()
	hasHardFail := reports.HasHardFail()
	if hadHardFail == hasHardFail {
		return patched, nil
	}

	// A failed node gaining a hard failure is left for operators to handle
	// before it is parked, and a parked node is about to be removed.
	if (hasHardFail && node.State == types.NodeStateFailed) || node.State == types.NodeStateParked {
		return patched, nil
	}
	return patched.WithWantToRetire(hasHardFail, hasHardFail, types.AgentSystem, p.clock.Now()), nil
}

// reportFromValue reads a report object. The type, createdMillis and
// description fields are recognized; anything else is kept as details.
func reportFromValue(id string, value Value, now time.Time) (types.Report, error) {
	if value.Kind() != KindObject {
		return types.Report{}, fmt.Errorf("report '%s': %w", id, kindError(KindObject, value))
	}

	report := types.Report{ID: id, Type: types.ReportTypeUnspecified, CreatedAt: now}
	for _, member := range value.Members() {
		switch member.Name {
		case "type":
			s, err := member.Value.AsString()
			if err != nil {
				return types.Report{}, fmt.Errorf("report '%s' type: %w", id, err)
			}
			t, err := types.ParseReportType(s)
			if err != nil {
				return types.Report{}, err
			}
			report.Type = t
		case "createdMillis":
			millis, err := member.Value.AsLong()
			if err != nil {
				return types.Report{}, fmt.Errorf("report '%s' createdMillis: %w", id, err)
			}
			report.CreatedAt = time.UnixMilli(millis).UTC()
		case "description":
			s, err := member.Value.AsString()
			if err != nil {
				return types.Report{}, fmt.Errorf("report '%s' description: %w", id, err)
			}
			report.Description = s
		default:
			if report.Details == nil {
				report.Details = map[string]interface{}{}
			}
			report.Details[member.Name] = member.Value.Interface()
		}
	}
	return report, nil
}
