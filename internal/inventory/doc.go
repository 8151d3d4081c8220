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

// Package inventory provides access to the persistent record of providers,
// machines and disk images.
//
// The reaper loads one provider as a fully populated fleet.Provider
// snapshot, decides what to retire, and removes records one at a time
// through the Store. Removing a record that is already gone succeeds, so an
// interrupted run can simply be repeated.
//
// Two backends are available:
//   - KubeStore keeps the inventory as Provider, Machine, BaseImage and
//     SnapshotImage custom resources in a single namespace. Children are
//     linked to their provider by the "fleet.vmreap.io/provider" label and
//     snapshot images to their base image by "fleet.vmreap.io/base-image".
//   - BadgerStore keeps the same records as JSON in a local Badger
//     database, for hosts that run the reaper without a cluster.
//
// Example usage:
//
//	store := inventory.NewKubeStore(k8sClient, "vmreap-system")
//	provider, err := store.GetProvider(ctx, "rax-dfw")
//	if err != nil {
//		return err
//	}
//	inventory.PrintState(os.Stdout, []*fleet.Provider{provider}, time.Now())
package inventory
