// Package config provides riddle catalog management for Riddle Match.
//
// The config package handles:
//   - Loading riddle catalogs from JSON files
//   - Catalog validation
//   - Default catalog selection
//   - Catalog discovery and listing
//
// Catalog Format:
//
// Catalogs are stored as JSON files in the catalogs directory. The file name
// without its extension is the catalog ID used to create sessions:
//
//	{
//	  "name": "Community",
//	  "description": "Six members of a community",
//	  "subject": "community members",
//	  "riddles": [
//	    {"prompt": "I make and enforce laws.", "answer": "Government", "icon": "fa-landmark"}
//	  ]
//	}
//
// Default Catalog:
//
// community.json is the default when present. Otherwise the first valid
// catalog in ID order is used, and an empty directory falls back to the
// built-in community catalog.
//
// Usage:
//
//	manager, err := config.NewManager("catalogs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	catalog, err := manager.LoadCatalog("community")
//	catalogs, err := manager.ListCatalogs()
package config
