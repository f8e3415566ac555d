// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package database provides persistent storage for the Merkle accumulators.

Storage engines are plugged in as drivers which register themselves on import:

	import (
		"gitlab.com/jaxnet/mmrengine/database"
		_ "gitlab.com/jaxnet/mmrengine/database/ldb"
	)

	store, err := database.Create("leveldb", "path/to/db")

A Store is a flat ordered key-value space. Buckets split it into named
namespaces; HashBackend and CheckpointStore keep mountain range nodes and
change tracker checkpoints inside a bucket.
*/
package database
