// Package s3 implements blobstore.Store on Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := s3.NewStore(s3.NewFromConfig(cfg), "my-bucket", "aresvec/")
//
// # Features
//
//   - Ranged GETs for partial reads
//   - Streaming multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - Configurable key prefix for multi-tenant isolation
//
// CommitStore adds DynamoDB-backed publish markers on top, giving backup
// uploads the atomic visibility that S3 alone lacks.
package s3
