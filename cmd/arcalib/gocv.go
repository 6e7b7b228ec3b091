//go:build gocv

package main

import _ "github.com/Faultbox/arcalib/internal/gocvio"
