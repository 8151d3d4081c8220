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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// BaseImageSpec defines an image lineage and its standing headroom.
type BaseImageSpec struct {
	// Provider is the name of the owning Provider
	Provider string `json:"provider"`

	// MinReady is the number of ready machines to keep for this image
	// +kubebuilder:validation:Minimum=0
	// +optional
	MinReady int `json:"minReady,omitempty"`
}

// BaseImageStatus records which snapshot is in use.
type BaseImageStatus struct {
	// CurrentSnapshot is the name of the active SnapshotImage
	// +optional
	CurrentSnapshot string `json:"currentSnapshot,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Provider",type="string",JSONPath=".spec.provider"
// +kubebuilder:printcolumn:name="MinReady",type="integer",JSONPath=".spec.minReady"
// +kubebuilder:printcolumn:name="Current",type="string",JSONPath=".status.currentSnapshot"

// BaseImage is the Schema for the baseimages API
type BaseImage struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	Spec   BaseImageSpec   `json:"spec"`
	Status BaseImageStatus `json:"status,omitempty,omitzero"`
}

// +kubebuilder:object:root=true

// BaseImageList contains a list of BaseImage
type BaseImageList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []BaseImage `json:"items"`
}

// SnapshotImageSpec identifies a disk image built from a base image.
type SnapshotImageSpec struct {
	// Provider is the name of the owning Provider
	Provider string `json:"provider"`

	// BaseImage is the name of the owning BaseImage
	BaseImage string `json:"baseImage"`

	// ExternalID is the cloud image id
	// +optional
	ExternalID string `json:"externalID,omitempty"`

	// ServerExternalID is the cloud id of the server the image was built from
	// +optional
	ServerExternalID string `json:"serverExternalID,omitempty"`
}

// SnapshotImageStatus is written by the image builder.
type SnapshotImageStatus struct {
	// State is the lifecycle state of the image
	// +kubebuilder:validation:Enum=building;ready;error;delete
	// +optional
	State string `json:"state,omitempty"`

	// StateTime is the time of the last state transition
	// +optional
	StateTime *metav1.Time `json:"stateTime,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Base",type="string",JSONPath=".spec.baseImage"
// +kubebuilder:printcolumn:name="State",type="string",JSONPath=".status.state"
// +kubebuilder:printcolumn:name="Since",type="date",JSONPath=".status.stateTime"

// SnapshotImage is the Schema for the snapshotimages API
type SnapshotImage struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	Spec   SnapshotImageSpec   `json:"spec"`
	Status SnapshotImageStatus `json:"status,omitempty,omitzero"`
}

// +kubebuilder:object:root=true

// SnapshotImageList contains a list of SnapshotImage
type SnapshotImageList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SnapshotImage `json:"items"`
}

func init() {
	SchemeBuilder.Register(&BaseImage{}, &BaseImageList{}, &SnapshotImage{}, &SnapshotImageList{})
}
