// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("artifacts/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	c, err := vecquant.New(vecquant.WithBlobStore(store))
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large artifacts
//   - CRC32C integrity checks on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
