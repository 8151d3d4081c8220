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

// ProviderSpec defines the capacity and cloud endpoint of a provider.
type ProviderSpec struct {
	// MaxServers is the maximum number of servers the provider may hold.
	// Zero means unbounded.
	// +kubebuilder:validation:Minimum=0
	// +optional
	MaxServers int `json:"maxServers,omitempty"`

	// AuthURL is the identity endpoint of the cloud
	AuthURL string `json:"authURL"`

	// Username is the cloud account name. The password lives in the secure config file.
	Username string `json:"username"`

	// ProjectID is the cloud tenant or project name
	// +optional
	ProjectID string `json:"projectID,omitempty"`

	// Region is the cloud region name
	// +optional
	Region string `json:"region,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:printcolumn:name="Max",type="integer",JSONPath=".spec.maxServers",description="Maximum servers"
// +kubebuilder:printcolumn:name="Region",type="string",JSONPath=".spec.region"

// Provider is the Schema for the providers API
type Provider struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty,omitzero"`

	Spec ProviderSpec `json:"spec"`
}

// +kubebuilder:object:root=true

// ProviderList contains a list of Provider
type ProviderList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Provider `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Provider{}, &ProviderList{})
}
