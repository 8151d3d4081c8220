/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package compute wraps the cloud compute API the reaper tears resources
// down through.
//
// The reaper only needs a narrow slice of the API: look up a server or
// image by id, delete it, and list flavors. A lookup that the cloud answers
// with "not found" is reported as ErrNotFound so callers can treat the
// resource as already gone.
//
// The production implementation talks to OpenStack Nova and Glance using
// goose:
//
//	c, err := compute.NewNovaClient(compute.Credentials{
//		AuthURL:  "https://identity.example.com/v2.0",
//		Username: "ci",
//		Password: secret,
//		Project:  "ci-project",
//		Region:   "DFW",
//	})
//	if err != nil {
//		return err
//	}
//	flavor, err := compute.FindFlavor(ctx, c, 1024)
package compute
