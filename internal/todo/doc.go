// Package todo defines task records, their JSON codec and validation.
//
// The stored and exported format is a JSON array of task objects:
//
//	[
//	  {
//	    "id": "5f0c8f0e-8a0b-4bb5-9b61-0c7d7c3c2f11",
//	    "title": "Renew passport",
//	    "description": "Bring two photos",
//	    "dueDate": "2025-03-01T09:30",
//	    "priority": "high",
//	    "tags": ["admin", "travel"],
//	    "completed": false,
//	    "createdAt": "2025-02-10T18:04:11.512Z"
//	  }
//	]
//
// # Due dates
//
// Due dates are kept as the text the user entered. ParseDueDate accepts
// RFC 3339 timestamps and the zone-less forms "2006-01-02T15:04",
// "2006-01-02T15:04:05", "2006-01-02 15:04" and "2006-01-02"; zone-less
// values are read in local time. An unparseable due date never blocks
// storage, import or export.
//
// # Validation
//
// Decoding with UnmarshalTasks only requires a JSON array whose elements
// have correctly typed fields. Validate additionally checks the embedded
// JSON Schema (task.schema.json, draft 2020-12) and id uniqueness; it
// backs strict imports and the doctor command.
//
// # Priorities
//
//   - "low" (default)
//   - "medium"
//   - "high"
package todo
