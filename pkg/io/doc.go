// Package io reads and writes the JSON seed-file layout: nodes.json,
// relationships.json, journeys.json, and positions.json in one directory.
// Every file is optional; a missing file contributes nothing.
package io
