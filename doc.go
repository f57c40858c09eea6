// Package logarchive packs the log files of a batch job's workers into a
// single archive per job run and reads them back.
//
// An archive is a sequence of entries, one per producer key, each holding
// the top-level log files found in that producer's directories. The writer
// admits every candidate file through an ownership check, snapshots its
// length at admission, and streams exactly that many bytes, so a file that
// keeps growing while it is copied never corrupts the archive. A FlatBuffers
// trailer written at Close indexes every entry and records a digest of the
// archive body.
//
// # Writing
//
//	w, err := logarchive.Create(filestore.OS(), "/logs/app_0001.lgar",
//	    logarchive.WithOwner("hadoop"),
//	    logarchive.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	err = w.Append("container_0001_01_000002", logarchive.EntrySource{
//	    Roots:   []string{"/data1/logs", "/data2/logs"},
//	    RelPath: "app_0001/container_0001_01_000002",
//	})
//	...
//	err = w.Close()
//
// # Reading
//
//	r, err := logarchive.Open(filestore.OS(), "/logs/app_0001.lgar")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for {
//	    key, entry, err := r.Next()
//	    if errors.Is(err, logarchive.ErrEndOfArchive) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println("Container:", key)
//	    if err := render.Entry(os.Stdout, entry); err != nil {
//	        return err
//	    }
//	}
//
// Archives that were never closed have no trailer and fail [Open].
package logarchive

//go:generate flatc --go --go-namespace fb -o internal schema/trailer.fbs
