// Package files discovers price files and exported artifacts on disk.
//
// Discovery lists regular files by extension relative to a base path and
// summarizes a directory into an Inventory, which the health check reports
// for the price and output directories.
//
//	d := files.NewDiscovery(paths.BaseDir)
//	prices, err := d.FindPriceFiles(paths.PricesDir)
//	symbols := files.Symbols(prices)
package files
