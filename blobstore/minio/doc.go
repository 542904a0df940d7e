// Package minio implements blobstore.Store on MinIO and other
// S3-compatible systems (Ceph, Garage, SeaweedFS) using the official
// MinIO client, with no AWS dependencies.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "backups", "aresvec/")
package minio
