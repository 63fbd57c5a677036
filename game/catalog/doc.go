// Package catalog loads the block catalogs boards are created from.
//
// A catalog is a named, ordered list of blocks (id, width, height, color).
// Catalogs live as files in a directory, in JSON:
//
//	{
//	  "name": "White Edition",
//	  "description": "...",
//	  "blocks": [{"id": 0, "width": 1, "height": 1, "color": "#000000"}]
//	}
//
// or in HCL:
//
//	name = "Stripes"
//	block {
//	  id     = 0
//	  width  = 2
//	  height = 8
//	  color  = "#FF0000"
//	}
//
// The file name without its extension is the catalog id used to create
// sessions. The White Edition is built in under the id "white" and is
// served even when no directory is configured.
//
// Every catalog is validated with engine.ValidateCatalog before it is cached
// or saved. Saved catalogs are always written as JSON.
package catalog
