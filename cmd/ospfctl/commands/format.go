package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

func formatAreas(areas []ospf.AreaSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(areas)
	case formatTable:
		return formatAreasTable(areas), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatAreasTable(areas []ospf.AreaSnapshot) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AREA\tTYPE\tINTERFACES\tLSAS")
	for _, a := range areas {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", a.ID, a.Type, len(a.Interfaces), a.LSACount)
	}
	w.Flush() //nolint:errcheck
	return buf.String()
}

func formatNeighbors(rows []neighborEntry, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(rows)
	case formatTable:
		return formatNeighborsTable(rows), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatNeighborsTable(rows []neighborEntry) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AREA\tINTERFACE\tNEIGHBOR\tADDRESS\tSTATE\tPRIORITY\tDR\tBDR")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Area, r.Interface, r.RouterID, r.Address, r.State, r.Priority, r.DeclaredDR, r.DeclaredBDR)
	}
	w.Flush() //nolint:errcheck
	return buf.String()
}

func formatLSDB(lsas []ospf.LSASnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(lsas)
	case formatTable:
		return formatLSDBTable(lsas), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatLSDBTable(lsas []ospf.LSASnapshot) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLS-ID\tADV-ROUTER\tAGE\tSEQ\tCHECKSUM")
	for _, l := range lsas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%#x\t%#x\n", l.Type, l.LSID, l.AdvRouter, l.Age, l.SeqNum, l.Checksum)
	}
	w.Flush() //nolint:errcheck
	return buf.String()
}

func formatRoutes(routes []ospf.RouteSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalIndent(routes)
	case formatTable:
		return formatRoutesTable(routes), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatRoutesTable(routes []ospf.RouteSnapshot) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PREFIX\tTYPE\tCOST\tAREA\tNEXT-HOPS")
	for _, r := range routes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.Prefix, r.Type, r.Cost, r.AreaID, strings.Join(r.NextHops, ","))
	}
	w.Flush() //nolint:errcheck
	return buf.String()
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal to JSON: %w", err)
	}
	return string(data), nil
}
