/*
Copyright (c) 2023 Red Hat, Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in
compliance with the License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is
distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
implied. See the License for the specific language governing permissions and limitations under the
License.
*/

package network

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/gomega"
)

var _ = Describe("Listener", func() {
	var tmp string

	BeforeEach(func() {
		tmp = GinkgoT().TempDir()
	})

	It("Can't be created without a logger", func() {
		listener, err := NewListener().
			SetAddress("127.0.0.1:0").
			Build()
		Expect(err).To(MatchError("logger is mandatory"))
		Expect(listener).To(BeNil())
	})

	It("Can't be created without an address", func() {
		listener, err := NewListener().
			SetLogger(logger).
			Build()
		Expect(err).To(MatchError("address is mandatory"))
		Expect(listener).To(BeNil())
	})

	It("Can't be created with an incorrect address", func() {
		listener, err := NewListener().
			SetLogger(logger).
			SetAddress("junk").
			Build()
		Expect(err).To(MatchError(ContainSubstring("junk")))
		Expect(listener).To(BeNil())
	})

	It("Requires both the TLS certificate and key", func() {
		listener, err := NewListener().
			SetLogger(logger).
			SetAddress("127.0.0.1:0").
			SetTLS("tls.crt", "").
			Build()
		Expect(err).To(MatchError(ContainSubstring("must be given together")))
		Expect(listener).To(BeNil())
	})

	It("Fails if the TLS files can't be loaded", func() {
		crt := filepath.Join(tmp, "tls.crt")
		key := filepath.Join(tmp, "tls.key")
		Expect(os.WriteFile(crt, []byte("junk"), 0o600)).To(Succeed())
		Expect(os.WriteFile(key, []byte("junk"), 0o600)).To(Succeed())
		listener, err := NewListener().
			SetLogger(logger).
			SetAddress("127.0.0.1:0").
			SetTLS(crt, key).
			Build()
		Expect(err).To(MatchError(ContainSubstring("failed to load TLS key pair")))
		Expect(listener).To(BeNil())
	})

	It("Uses the given network and address", func() {
		address := filepath.Join(tmp, "my.socket")
		listener, err := NewListener().
			SetLogger(logger).
			SetNetwork("unix").
			SetAddress(address).
			Build()
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(listener.Close)
		Expect(listener.Addr().String()).To(Equal(address))
	})

	It("Serves plain HTTP when TLS isn't configured", func() {
		listener, err := NewListener().
			SetLogger(logger).
			SetAddress("127.0.0.1:0").
			Build()
		Expect(err).ToNot(HaveOccurred())
		server := &http.Server{
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}),
		}
		go func() {
			defer GinkgoRecover()
			_ = server.Serve(listener)
		}()
		DeferCleanup(server.Close)

		response, err := http.Get("http://" + listener.Addr().String())
		Expect(err).ToNot(HaveOccurred())
		defer response.Body.Close()
		body, err := io.ReadAll(response.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(Equal("ok"))
	})
})
