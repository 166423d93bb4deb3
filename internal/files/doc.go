// Package files reads the spreadsheet sources of a pricing run.
//
// Discovery resolves where each source workbook lives: an explicitly
// configured path wins, otherwise the newest file matching the source's
// name patterns in the data directory is used.
//
// Workbook streams a sheet selected by a dataprocessing.Layout into raw
// string rows. A missing workbook or sheet is reported as ErrSourceMissing
// so the caller can skip that source and keep going.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	path, err := discovery.Locate(cfg.Sources.SINAPI, "SINAPI*.xlsx")
//	if errors.Is(err, files.ErrSourceMissing) {
//	    // skip SINAPI
//	}
//	rows, err := files.ReadSheet(path, dataprocessing.ISDLayout())
package files
