// Command icon uploads a servicio icon through a presigned URL issued by the
// API and prints the object key to store in the servicio's icon_key.
//
//	icon -f bus.png [-api http://localhost:8080] [-t <bearer token>]
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/servicios/internal/netx"
)

func main() {
	file := flag.String("f", "", "icon file to upload")
	api := flag.String("api", "http://localhost:8080", "servicios API base URL")
	token := flag.String("t", os.Getenv("SERVICIOS_TOKEN"), "bearer token")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := &http.Client{}
	target, err := netx.RequestIconUpload(ctx, client, *api, *token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := netx.UploadToPresignedURL(ctx, client, target.URL, http.DetectContentType(data), data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println(target.Key)
}
