// sam2seg 使用 SAM2 对单张图片进行框选/点选/自动分割
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
